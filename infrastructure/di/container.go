package di

import (
	"dynamo-eventstore/application/ports"
	"dynamo-eventstore/application/services"
	"dynamo-eventstore/infrastructure/config"
	"dynamo-eventstore/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	EventStore     ports.EventStore[string]
	AccountService *services.AccountService
	Router         *rest.Router
}

// Shutdown flushes buffered log entries
func (c *Container) Shutdown() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
