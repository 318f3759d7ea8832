package services

import (
	"context"
	"time"

	"dynamo-eventstore/application/ports"
	"dynamo-eventstore/domain/core/aggregates"
	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenAccountCommand opens a new account
type OpenAccountCommand struct {
	Owner    string         `json:"owner" validate:"required,max=200"`
	Currency string         `json:"currency" validate:"omitempty,len=3"`
	Channel  events.Channel `json:"channel"`
}

// MoneyMovementCommand deposits into or withdraws from an account
type MoneyMovementCommand struct {
	Amount    int64          `json:"amount" validate:"gt=0"`
	Channel   events.Channel `json:"channel"`
	Reference *string        `json:"reference,omitempty" validate:"omitempty,max=100"`
}

// CloseAccountCommand closes an account
type CloseAccountCommand struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// AccountService loads accounts by replaying their events and records
// new events at the next version.
type AccountService struct {
	store  ports.EventStore[string]
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(store ports.EventStore[string], logger *zap.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OpenAccount records AccountOpened for a fresh account id
func (s *AccountService) OpenAccount(ctx context.Context, cmd OpenAccountCommand) (*aggregates.Account, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	opened := events.NewAccountOpened(id, cmd.Owner, cmd.Currency, cmd.Channel, s.now())
	if err := s.store.AppendEvent(ctx, opened); err != nil {
		return nil, err
	}

	s.logger.Info("Account opened",
		zap.String("account_id", id),
		zap.String("owner", cmd.Owner),
	)

	return aggregates.ReplayAccount(id, []events.AggregateEvent[string]{opened})
}

// GetAccount rebuilds the current state of an account
func (s *AccountService) GetAccount(ctx context.Context, id string) (*aggregates.Account, error) {
	history, err := s.store.GetEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	return aggregates.ReplayAccount(id, history)
}

// GetHistory returns the account's events in version order
func (s *AccountService) GetHistory(ctx context.Context, id string) ([]events.AggregateEvent[string], error) {
	return s.store.GetEvents(ctx, id)
}

// ListAccountIDs returns the ids of every account. It reads the whole event table.
func (s *AccountService) ListAccountIDs(ctx context.Context) ([]string, error) {
	return s.store.GetAggregateIDs(ctx)
}

// Deposit pays money into an account
func (s *AccountService) Deposit(ctx context.Context, id string, cmd MoneyMovementCommand) (*aggregates.Account, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}

	return s.execute(ctx, id, func(account *aggregates.Account) (events.AggregateEvent[string], error) {
		return account.Deposit(cmd.Amount, cmd.Channel, cmd.Reference, s.now())
	})
}

// Withdraw takes money out of an account
func (s *AccountService) Withdraw(ctx context.Context, id string, cmd MoneyMovementCommand) (*aggregates.Account, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}

	return s.execute(ctx, id, func(account *aggregates.Account) (events.AggregateEvent[string], error) {
		return account.Withdraw(cmd.Amount, cmd.Channel, cmd.Reference, s.now())
	})
}

// CloseAccount closes an account with a zero balance
func (s *AccountService) CloseAccount(ctx context.Context, id string, cmd CloseAccountCommand) (*aggregates.Account, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}

	return s.execute(ctx, id, func(account *aggregates.Account) (events.AggregateEvent[string], error) {
		return account.Close(cmd.Reason, s.now())
	})
}

// execute loads the account, asks decide for the next event, appends it and
// applies it to the loaded state. Two concurrent calls for one account
// produce the same version and the later write wins.
func (s *AccountService) execute(
	ctx context.Context,
	id string,
	decide func(*aggregates.Account) (events.AggregateEvent[string], error),
) (*aggregates.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	event, err := decide(account)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	if err := account.Apply(event); err != nil {
		return nil, err
	}

	s.logger.Debug("Account event recorded",
		zap.String("account_id", id),
		zap.Int64("version", event.AggregateVersion()),
	)
	return account, nil
}
