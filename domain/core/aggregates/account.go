package aggregates

import (
	"fmt"
	"time"

	"dynamo-eventstore/domain/events"
	appErrors "dynamo-eventstore/pkg/errors"
)

// Account is the aggregate root for a bank account.
// Its state is never stored; it is rebuilt by replaying the account's events.
type Account struct {
	id        string
	owner     string
	currency  string
	balance   int64
	closed    bool
	version   int64
	openedAt  time.Time
	updatedAt time.Time
}

// ReplayAccount rebuilds an account from its ordered history.
// It returns a NOT_FOUND error when the history is empty.
func ReplayAccount(id string, history []events.AggregateEvent[string]) (*Account, error) {
	if len(history) == 0 {
		return nil, appErrors.NewNotFoundError("account " + id)
	}

	account := &Account{id: id}
	for _, event := range history {
		if err := account.Apply(event); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// Apply folds one event into the account state
func (a *Account) Apply(event events.AggregateEvent[string]) error {
	if event.AggregateID() != a.id {
		return appErrors.NewInternalError(fmt.Sprintf("event for %s applied to account %s", event.AggregateID(), a.id))
	}

	switch e := event.(type) {
	case *events.AccountOpened:
		a.owner = e.Owner
		a.currency = e.Currency
		a.balance = e.Balance
		a.openedAt = e.OpenedAt
		a.updatedAt = e.OpenedAt
	case *events.MoneyDeposited:
		a.balance += e.Amount
		a.updatedAt = e.At
	case *events.MoneyWithdrawn:
		a.balance -= e.Amount
		a.updatedAt = e.At
	case *events.AccountClosed:
		a.closed = true
		a.updatedAt = e.ClosedAt
	default:
		return appErrors.NewInternalError(fmt.Sprintf("unexpected account event %T", event))
	}

	a.version = event.AggregateVersion()
	return nil
}

// Deposit returns the event that pays amount into the account
func (a *Account) Deposit(amount int64, channel events.Channel, reference *string, now time.Time) (*events.MoneyDeposited, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, appErrors.NewValidationError("deposit amount must be positive")
	}
	return events.NewMoneyDeposited(a.id, a.version+1, amount, channel, reference, now), nil
}

// Withdraw returns the event that takes amount out of the account.
// The balance may not go negative.
func (a *Account) Withdraw(amount int64, channel events.Channel, reference *string, now time.Time) (*events.MoneyWithdrawn, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, appErrors.NewValidationError("withdrawal amount must be positive")
	}
	if amount > a.balance {
		return nil, appErrors.NewConflictError("insufficient funds").
			WithCode("INSUFFICIENT_FUNDS").
			WithDetails(map[string]interface{}{"balance": a.balance, "amount": amount})
	}
	return events.NewMoneyWithdrawn(a.id, a.version+1, amount, channel, reference, now), nil
}

// Close returns the event that closes the account. Only an empty account can be closed.
func (a *Account) Close(reason string, now time.Time) (*events.AccountClosed, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	if a.balance != 0 {
		return nil, appErrors.NewConflictError("account balance must be zero to close").
			WithCode("BALANCE_NOT_ZERO")
	}
	return events.NewAccountClosed(a.id, a.version+1, reason, now), nil
}

func (a *Account) ensureOpen() error {
	if a.closed {
		return appErrors.NewConflictError(fmt.Sprintf("account %s is closed", a.id)).WithCode("ACCOUNT_CLOSED")
	}
	return nil
}

// Getters
func (a *Account) ID() string           { return a.id }
func (a *Account) Owner() string        { return a.owner }
func (a *Account) Currency() string     { return a.currency }
func (a *Account) Balance() int64       { return a.balance }
func (a *Account) IsClosed() bool       { return a.closed }
func (a *Account) Version() int64       { return a.version }
func (a *Account) OpenedAt() time.Time  { return a.openedAt }
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }
