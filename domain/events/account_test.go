package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	for _, name := range []string{"Online", "online", "ONLINE"} {
		c, err := ParseChannel(name)
		require.NoError(t, err, name)
		assert.Equal(t, ChannelOnline, c)
	}

	_, err := ParseChannel("pigeon")
	assert.Error(t, err)
}

func TestChannel_AttributeValue(t *testing.T) {
	av, err := ChannelTransfer.MarshalDynamoDBAttributeValue()
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Transfer"}, av)

	var c Channel
	require.NoError(t, c.UnmarshalDynamoDBAttributeValue(av))
	assert.Equal(t, ChannelTransfer, c)

	_, err = Channel(42).MarshalDynamoDBAttributeValue()
	assert.Error(t, err)

	assert.Error(t, c.UnmarshalDynamoDBAttributeValue(&types.AttributeValueMemberN{Value: "2"}))
}

func TestChannel_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Channel Channel `json:"channel"`
	}{ChannelBranch})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel":"Branch"}`, string(data))

	var out struct {
		Channel Channel `json:"channel"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"channel":"branch"}`), &out))
	assert.Equal(t, ChannelBranch, out.Channel)
}

func TestAccountEventConstructors(t *testing.T) {
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	ref := "r-1"

	opened := NewAccountOpened("acct-1", "Ada", "EUR", ChannelOnline, now)
	assert.Equal(t, "acct-1", opened.AggregateID())
	assert.Equal(t, int64(1), opened.AggregateVersion())
	assert.Equal(t, int64(0), opened.Balance)

	withdrawn := NewMoneyWithdrawn("acct-1", 3, 20, ChannelBranch, &ref, now)
	assert.Equal(t, int64(3), withdrawn.AggregateVersion())
	assert.Equal(t, &ref, withdrawn.Reference)

	closed := NewAccountClosed("acct-1", 4, "done", now)
	assert.Equal(t, now, closed.ClosedAt)

	var _ AggregateEvent[string] = opened
	opened.SetAggregateID("acct-2")
	assert.Equal(t, "acct-2", opened.AggregateID())
}
