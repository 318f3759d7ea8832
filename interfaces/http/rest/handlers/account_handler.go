package handlers

import (
	"net/http"
	"time"

	"dynamo-eventstore/application/services"
	"dynamo-eventstore/domain/core/aggregates"
	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/pkg/common"
	appErrors "dynamo-eventstore/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// EventNamer resolves the stored type name of an event
type EventNamer interface {
	NameOf(event events.AggregateEvent[string]) (string, bool)
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	service      *services.AccountService
	namer        EventNamer
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(
	service *services.AccountService,
	namer EventNamer,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		service:      service,
		namer:        namer,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// AccountResponse is the replayed state of an account
type AccountResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Currency  string    `json:"currency,omitempty"`
	Balance   int64     `json:"balance"`
	Closed    bool      `json:"closed"`
	Version   int64     `json:"version"`
	OpenedAt  time.Time `json:"openedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventResponse is one stored event
type EventResponse struct {
	Type             string      `json:"type"`
	AggregateID      string      `json:"aggregateId"`
	AggregateVersion int64       `json:"aggregateVersion"`
	Data             interface{} `json:"data"`
}

// OpenAccount handles POST /accounts
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var cmd services.OpenAccountCommand
	if err := common.ParseJSONBody(w, r, &cmd, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	account, err := h.service.OpenAccount(r.Context(), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/accounts/"+account.ID())
	common.RespondJSON(w, http.StatusCreated, toAccountResponse(account))
}

// ListAccounts handles GET /accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ListAccountIDs(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, ids, &common.MetaInfo{
		RequestID: appErrors.RequestID(r),
		Count:     len(ids),
	})
}

// GetAccount handles GET /accounts/{accountID}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}

// GetAccountEvents handles GET /accounts/{accountID}/events
func (h *AccountHandler) GetAccountEvents(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetHistory(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]EventResponse, 0, len(history))
	for _, event := range history {
		name, _ := h.namer.NameOf(event)
		response = append(response, EventResponse{
			Type:             name,
			AggregateID:      event.AggregateID(),
			AggregateVersion: event.AggregateVersion(),
			Data:             event,
		})
	}

	common.RespondWithMeta(w, http.StatusOK, response, &common.MetaInfo{
		RequestID: appErrors.RequestID(r),
		Count:     len(response),
	})
}

// Deposit handles POST /accounts/{accountID}/deposits
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var cmd services.MoneyMovementCommand
	if err := common.ParseJSONBody(w, r, &cmd, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	account, err := h.service.Deposit(r.Context(), chi.URLParam(r, "accountID"), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}

// Withdraw handles POST /accounts/{accountID}/withdrawals
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var cmd services.MoneyMovementCommand
	if err := common.ParseJSONBody(w, r, &cmd, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	account, err := h.service.Withdraw(r.Context(), chi.URLParam(r, "accountID"), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}

// CloseAccount handles POST /accounts/{accountID}/close
func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	var cmd services.CloseAccountCommand
	if r.ContentLength != 0 {
		if err := common.ParseJSONBody(w, r, &cmd, maxBodyBytes); err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
	}

	account, err := h.service.CloseAccount(r.Context(), chi.URLParam(r, "accountID"), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAccountResponse(account))
}

func toAccountResponse(account *aggregates.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID(),
		Owner:     account.Owner(),
		Currency:  account.Currency(),
		Balance:   account.Balance(),
		Closed:    account.IsClosed(),
		Version:   account.Version(),
		OpenedAt:  account.OpenedAt(),
		UpdatedAt: account.UpdatedAt(),
	}
}
