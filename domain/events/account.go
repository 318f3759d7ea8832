package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Account event discriminators
const (
	AccountOpenedType  = "AccountOpened"
	MoneyDepositedType = "MoneyDeposited"
	MoneyWithdrawnType = "MoneyWithdrawn"
	AccountClosedType  = "AccountClosed"
)

// AccountAggregateType names the aggregate for table resolution
const AccountAggregateType = "account"

// Channel identifies where a money movement originated.
// It is persisted by name so stored documents survive reordering of the constants.
type Channel int

const (
	ChannelUnknown Channel = iota
	ChannelBranch
	ChannelOnline
	ChannelTransfer
)

var channelNames = map[Channel]string{
	ChannelUnknown:  "Unknown",
	ChannelBranch:   "Branch",
	ChannelOnline:   "Online",
	ChannelTransfer: "Transfer",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// ParseChannel resolves a channel by name, case-insensitively
func ParseChannel(name string) (Channel, error) {
	for c, n := range channelNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return ChannelUnknown, fmt.Errorf("unknown channel %q", name)
}

// MarshalDynamoDBAttributeValue stores the channel as its name
func (c Channel) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if _, ok := channelNames[c]; !ok {
		return nil, fmt.Errorf("cannot marshal unknown channel %d", int(c))
	}
	return &types.AttributeValueMemberS{Value: c.String()}, nil
}

// UnmarshalDynamoDBAttributeValue reads a channel stored by name
func (c *Channel) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("channel must be stored as a string, got %T", av)
	}
	parsed, err := ParseChannel(s.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText renders the channel by name in JSON
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a channel name
func (c *Channel) UnmarshalText(text []byte) error {
	parsed, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AccountOpened is raised when an account is opened
type AccountOpened struct {
	Base[string]
	Owner    string    `dynamodbav:"owner" json:"owner" validate:"required"`
	Currency string    `dynamodbav:"currency,omitempty" json:"currency,omitempty"`
	Balance  int64     `dynamodbav:"balance" json:"balance"`
	Channel  Channel   `dynamodbav:"channel" json:"channel"`
	OpenedAt time.Time `dynamodbav:"openedAt" json:"openedAt"`
}

// NewAccountOpened creates an AccountOpened event, always at version 1
func NewAccountOpened(accountID, owner, currency string, channel Channel, timestamp time.Time) *AccountOpened {
	return &AccountOpened{
		Base:     NewBase(accountID, 1),
		Owner:    owner,
		Currency: currency,
		Channel:  channel,
		OpenedAt: timestamp,
	}
}

// MoneyDeposited is raised when money is paid into an account
type MoneyDeposited struct {
	Base[string]
	Amount    int64     `dynamodbav:"amount" json:"amount" validate:"gt=0"`
	Channel   Channel   `dynamodbav:"channel" json:"channel"`
	Reference *string   `dynamodbav:"reference" json:"reference,omitempty"`
	At        time.Time `dynamodbav:"at" json:"at"`
}

// NewMoneyDeposited creates a MoneyDeposited event
func NewMoneyDeposited(accountID string, version, amount int64, channel Channel, reference *string, timestamp time.Time) *MoneyDeposited {
	return &MoneyDeposited{
		Base:      NewBase(accountID, version),
		Amount:    amount,
		Channel:   channel,
		Reference: reference,
		At:        timestamp,
	}
}

// MoneyWithdrawn is raised when money is taken out of an account
type MoneyWithdrawn struct {
	Base[string]
	Amount    int64     `dynamodbav:"amount" json:"amount" validate:"gt=0"`
	Channel   Channel   `dynamodbav:"channel" json:"channel"`
	Reference *string   `dynamodbav:"reference" json:"reference,omitempty"`
	At        time.Time `dynamodbav:"at" json:"at"`
}

// NewMoneyWithdrawn creates a MoneyWithdrawn event
func NewMoneyWithdrawn(accountID string, version, amount int64, channel Channel, reference *string, timestamp time.Time) *MoneyWithdrawn {
	return &MoneyWithdrawn{
		Base:      NewBase(accountID, version),
		Amount:    amount,
		Channel:   channel,
		Reference: reference,
		At:        timestamp,
	}
}

// AccountClosed is raised when an account is closed. No events follow it.
type AccountClosed struct {
	Base[string]
	Reason   string    `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
	ClosedAt time.Time `dynamodbav:"closedAt" json:"closedAt"`
}

// NewAccountClosed creates an AccountClosed event
func NewAccountClosed(accountID string, version int64, reason string, timestamp time.Time) *AccountClosed {
	return &AccountClosed{
		Base:     NewBase(accountID, version),
		Reason:   reason,
		ClosedAt: timestamp,
	}
}
