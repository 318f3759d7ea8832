package eventstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/infrastructure/persistence/abstractions"
	"dynamo-eventstore/infrastructure/persistence/codec"
	"dynamo-eventstore/infrastructure/persistence/keys"
	"dynamo-eventstore/infrastructure/persistence/memory"
	appErrors "dynamo-eventstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newAccountRegistry(t *testing.T) *codec.Registry[string] {
	t.Helper()

	registry := codec.NewRegistry[string]()
	require.NoError(t, codec.Register[string, events.AccountOpened](registry, events.AccountOpenedType))
	require.NoError(t, codec.Register[string, events.MoneyDeposited](registry, events.MoneyDepositedType))
	require.NoError(t, codec.Register[string, events.MoneyWithdrawn](registry, events.MoneyWithdrawnType))
	require.NoError(t, codec.Register[string, events.AccountClosed](registry, events.AccountClosedType))
	return registry
}

func newMemoryStore(t *testing.T, opts ...Option[string]) (*EventStore[string], *memory.Table) {
	t.Helper()

	table := memory.NewTable("events-account")
	store, err := New(table, newAccountRegistry(t), opts...)
	require.NoError(t, err)
	return store, table
}

func deposit(id string, version, amount int64) *events.MoneyDeposited {
	return events.NewMoneyDeposited(id, version, amount, events.ChannelOnline, nil, testTime)
}

func versions(history []events.AggregateEvent[string]) []int64 {
	out := make([]int64, len(history))
	for i, event := range history {
		out[i] = event.AggregateVersion()
	}
	return out
}

// mockTable is a testify mock of the table abstraction
type mockTable struct {
	mock.Mock
}

func (m *mockTable) Name() string { return "mock-events" }

func (m *mockTable) PutItem(ctx context.Context, doc abstractions.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockTable) Query(partitionKey types.AttributeValue, opts abstractions.QueryOptions) abstractions.Cursor {
	args := m.Called(partitionKey, opts)
	return args.Get(0).(abstractions.Cursor)
}

func (m *mockTable) Scan(opts abstractions.ScanOptions) abstractions.Cursor {
	args := m.Called(opts)
	return args.Get(0).(abstractions.Cursor)
}

// scriptedCursor replays fixed pages; a non-nil error at a position fails that page
type scriptedCursor struct {
	pages  [][]abstractions.Document
	errs   []error
	next   int
	onPage func(int)
}

func (c *scriptedCursor) Next(ctx context.Context) ([]abstractions.Document, error) {
	i := c.next
	c.next++
	if c.onPage != nil {
		c.onPage(i)
	}
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	return c.pages[i], nil
}

func (c *scriptedCursor) Done() bool {
	return c.next >= len(c.pages)
}

func TestNew(t *testing.T) {
	t.Run("rejects key types without a codec", func(t *testing.T) {
		type compositeKey struct{ Region, Number string }

		_, err := New(memory.NewTable("t"), codec.NewRegistry[compositeKey]())
		require.Error(t, err)
		assert.True(t, appErrors.IsUnsupportedKeyType(err))
	})

	t.Run("requires a table and a registry", func(t *testing.T) {
		_, err := New[string](nil, codec.NewRegistry[string]())
		assert.Error(t, err)

		_, err = New[string](memory.NewTable("t"), nil)
		assert.Error(t, err)
	})

	t.Run("reports the backing table", func(t *testing.T) {
		store, _ := newMemoryStore(t)
		assert.Equal(t, "events-account", store.TableName())
	})
}

func TestEventStore_AccountScenario(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	opened := events.NewAccountOpened("acct-1", "Ada", "EUR", events.ChannelBranch, testTime)
	deposited := deposit("acct-1", 2, 50)

	// Act
	require.NoError(t, store.AppendEvent(ctx, opened))
	require.NoError(t, store.AppendEvent(ctx, deposited))
	history, err := store.GetEvents(ctx, "acct-1")

	// Assert
	require.NoError(t, err)
	require.Len(t, history, 2)

	gotOpened, ok := history[0].(*events.AccountOpened)
	require.True(t, ok, "first event is %T", history[0])
	assert.Equal(t, int64(0), gotOpened.Balance)
	assert.Equal(t, opened, gotOpened)

	gotDeposited, ok := history[1].(*events.MoneyDeposited)
	require.True(t, ok, "second event is %T", history[1])
	assert.Equal(t, int64(50), gotDeposited.Amount)
	assert.Equal(t, deposited, gotDeposited)
}

func TestEventStore_GetEventsOrdersByVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t, WithQueryPageSize[string](2))

	for _, v := range []int64{4, 1, 5, 3, 2} {
		require.NoError(t, store.AppendEvent(ctx, deposit("acct-9", v, v*10)))
	}

	history, err := store.GetEvents(ctx, "acct-9")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, versions(history))
}

func TestEventStore_GetEventsIsolatesAggregates(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	require.NoError(t, store.AppendEvent(ctx, deposit("a", 1, 10)))
	require.NoError(t, store.AppendEvent(ctx, deposit("b", 1, 20)))
	require.NoError(t, store.AppendEvent(ctx, deposit("b", 2, 30)))

	history, err := store.GetEvents(ctx, "a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].AggregateID())
}

func TestEventStore_GetEventsEmpty(t *testing.T) {
	store, _ := newMemoryStore(t)

	history, err := store.GetEvents(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestEventStore_GetAggregateIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t, WithScanPageSize[string](2))

	require.NoError(t, store.AppendEvent(ctx, deposit("A", 1, 1)))
	require.NoError(t, store.AppendEvent(ctx, deposit("B", 1, 1)))
	require.NoError(t, store.AppendEvent(ctx, deposit("B", 2, 1)))
	require.NoError(t, store.AppendEvent(ctx, deposit("C", 1, 1)))

	ids, err := store.GetAggregateIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, ids)
}

func TestEventStore_GetAggregateIDsEmptyTable(t *testing.T) {
	store, _ := newMemoryStore(t)

	ids, err := store.GetAggregateIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEventStore_ConcurrentEnumeration(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)
	require.NoError(t, store.AppendEvent(ctx, deposit("acct-2", 1, 5)))

	var wg sync.WaitGroup
	results := make([][]string, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.GetAggregateIDs(ctx)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Contains(t, results[i], "acct-2")
	}
}

func TestEventStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store, table := newMemoryStore(t)

	var wg sync.WaitGroup
	for a := 0; a < 4; a++ {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			for v := int64(1); v <= 10; v++ {
				assert.NoError(t, store.AppendEvent(ctx, deposit(fmt.Sprintf("acct-%d", a), v, v)))
			}
		}(a)
	}
	wg.Wait()

	assert.Equal(t, 40, table.Len())
	history, err := store.GetEvents(ctx, "acct-3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, versions(history))
}

func TestEventStore_DuplicateVersionOverwrites(t *testing.T) {
	ctx := context.Background()
	store, table := newMemoryStore(t)

	require.NoError(t, store.AppendEvent(ctx, deposit("acct-5", 1, 10)))
	require.NoError(t, store.AppendEvent(ctx, deposit("acct-5", 1, 99)))

	assert.Equal(t, 1, table.Len())
	history, err := store.GetEvents(ctx, "acct-5")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(99), history[0].(*events.MoneyDeposited).Amount)
}

func TestEventStore_AppendEventFailures(t *testing.T) {
	t.Run("invalid event is rejected before the put", func(t *testing.T) {
		table := new(mockTable)
		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		err = store.AppendEvent(context.Background(), deposit("acct-1", 2, 0))
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
		table.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
	})

	t.Run("cancelled before the put", func(t *testing.T) {
		table := new(mockTable)
		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = store.AppendEvent(ctx, deposit("acct-1", 2, 5))
		require.Error(t, err)
		assert.True(t, appErrors.IsCancelled(err))
		assert.ErrorIs(t, err, context.Canceled)
		table.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
	})

	t.Run("transport failure", func(t *testing.T) {
		transportErr := errors.New("ProvisionedThroughputExceededException")
		table := new(mockTable)
		table.On("PutItem", mock.Anything, mock.Anything).Return(fmt.Errorf("failed to put item: %w", transportErr))

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		err = store.AppendEvent(context.Background(), deposit("acct-1", 2, 5))
		require.Error(t, err)
		assert.True(t, appErrors.IsStoreUnavailable(err))
		assert.ErrorIs(t, err, transportErr)
		table.AssertExpectations(t)
	})

	t.Run("cancelled while in flight", func(t *testing.T) {
		table := new(mockTable)
		table.On("PutItem", mock.Anything, mock.Anything).Return(fmt.Errorf("operation error: %w", context.DeadlineExceeded))

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		err = store.AppendEvent(context.Background(), deposit("acct-1", 2, 5))
		require.Error(t, err)
		assert.True(t, appErrors.IsCancelled(err))
	})

	t.Run("writes the encoded document", func(t *testing.T) {
		table := new(mockTable)
		table.On("PutItem", mock.Anything, mock.MatchedBy(func(doc abstractions.Document) bool {
			disc, ok := doc[codec.DiscriminatorAttribute].(*types.AttributeValueMemberS)
			return ok && disc.Value == events.MoneyDepositedType
		})).Return(nil).Once()

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		require.NoError(t, store.AppendEvent(context.Background(), deposit("acct-1", 2, 5)))
		table.AssertExpectations(t)
	})
}

func TestEventStore_GetAggregateIDsFailures(t *testing.T) {
	keyDoc := func(id string) abstractions.Document {
		return abstractions.Document{
			abstractions.PartitionKeyAttribute: &types.AttributeValueMemberS{Value: id},
		}
	}

	t.Run("failing page discards everything", func(t *testing.T) {
		table := new(mockTable)
		table.On("Scan", mock.Anything).Return(&scriptedCursor{
			pages: [][]abstractions.Document{{keyDoc("a")}, nil},
			errs:  []error{nil, errors.New("connection reset")},
		})

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		ids, err := store.GetAggregateIDs(context.Background())
		require.Error(t, err)
		assert.Nil(t, ids)
		assert.True(t, appErrors.IsStoreUnavailable(err))
	})

	t.Run("cancellation between pages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		table := new(mockTable)
		table.On("Scan", mock.Anything).Return(&scriptedCursor{
			pages:  [][]abstractions.Document{{keyDoc("a")}, {keyDoc("b")}},
			onPage: func(int) { cancel() },
		})

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		ids, err := store.GetAggregateIDs(ctx)
		require.Error(t, err)
		assert.Nil(t, ids)
		assert.True(t, appErrors.IsCancelled(err))
	})

	t.Run("projects the key and forwards the page size", func(t *testing.T) {
		table := new(mockTable)
		table.On("Scan", abstractions.ScanOptions{
			PageSize:   25,
			Projection: []string{abstractions.PartitionKeyAttribute},
		}).Return(&scriptedCursor{pages: [][]abstractions.Document{{keyDoc("a")}}})

		store, err := New(table, newAccountRegistry(t), WithScanPageSize[string](25))
		require.NoError(t, err)

		ids, err := store.GetAggregateIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids)
		table.AssertExpectations(t)
	})

	t.Run("unrepresentable key", func(t *testing.T) {
		table := new(mockTable)
		table.On("Scan", mock.Anything).Return(&scriptedCursor{
			pages: [][]abstractions.Document{{{
				abstractions.PartitionKeyAttribute: &types.AttributeValueMemberBOOL{Value: true},
			}}},
		})

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		_, err = store.GetAggregateIDs(context.Background())
		require.Error(t, err)
		assert.True(t, appErrors.IsUnsupportedKeyType(err))
	})
}

func TestEventStore_GetEventsFailures(t *testing.T) {
	t.Run("undecodable item aborts the read", func(t *testing.T) {
		ctx := context.Background()
		store, table := newMemoryStore(t)
		require.NoError(t, store.AppendEvent(ctx, deposit("acct-7", 1, 5)))
		require.NoError(t, table.PutItem(ctx, abstractions.Document{
			abstractions.PartitionKeyAttribute: &types.AttributeValueMemberS{Value: "acct-7"},
			abstractions.SortKeyAttribute:      &types.AttributeValueMemberN{Value: "2"},
			codec.DiscriminatorAttribute:       &types.AttributeValueMemberS{Value: "InterestAccrued"},
		}))

		history, err := store.GetEvents(ctx, "acct-7")
		require.Error(t, err)
		assert.Nil(t, history)
		assert.True(t, appErrors.IsDeserialization(err))
	})

	t.Run("failing page aborts the read", func(t *testing.T) {
		table := new(mockTable)
		table.On("Query", &types.AttributeValueMemberS{Value: "acct-1"}, mock.Anything).Return(&scriptedCursor{
			pages: [][]abstractions.Document{nil},
			errs:  []error{errors.New("AccessDeniedException")},
		})

		store, err := New[string](table, newAccountRegistry(t))
		require.NoError(t, err)

		history, err := store.GetEvents(context.Background(), "acct-1")
		require.Error(t, err)
		assert.Nil(t, history)
		assert.True(t, appErrors.IsStoreUnavailable(err))
	})

	t.Run("cancelled before the first page", func(t *testing.T) {
		store, _ := newMemoryStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.GetEvents(ctx, "acct-1")
		require.Error(t, err)
		assert.True(t, appErrors.IsCancelled(err))
	})

	t.Run("forwards consistent read", func(t *testing.T) {
		table := new(mockTable)
		table.On("Query", mock.Anything, abstractions.QueryOptions{ConsistentRead: true}).
			Return(&scriptedCursor{pages: [][]abstractions.Document{{}}})

		store, err := New(table, newAccountRegistry(t), WithConsistentRead[string](true))
		require.NoError(t, err)

		_, err = store.GetEvents(context.Background(), "acct-1")
		require.NoError(t, err)
		table.AssertExpectations(t)
	})
}

type tick struct {
	events.Base[rune]
}

func TestEventStore_RuneKeys(t *testing.T) {
	ctx := context.Background()
	registry := codec.NewRegistry[rune]()
	codec.MustRegister[rune, tick](registry, "Tick")

	table := memory.NewTable("ticks")
	store, err := New(table, registry, WithKeyCodec(keys.Rune))
	require.NoError(t, err)

	require.NoError(t, store.AppendEvent(ctx, &tick{Base: events.NewBase('λ', 1)}))

	ids, err := store.GetAggregateIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rune{'λ'}, ids)

	history, err := store.GetEvents(ctx, 'λ')
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 'λ', history[0].AggregateID())
}

type reading struct {
	events.Base[float64]
}

func TestEventStore_RejectsNonFiniteFloatKeys(t *testing.T) {
	ctx := context.Background()
	registry := codec.NewRegistry[float64]()
	codec.MustRegister[float64, reading](registry, "Reading")

	table := new(mockTable)
	store, err := New(table, registry, WithKeyCodec(keys.Float64))
	require.NoError(t, err)

	err = store.AppendEvent(ctx, &reading{Base: events.NewBase(math.NaN(), 1)})
	require.Error(t, err)
	assert.True(t, appErrors.IsUnsupportedKeyType(err))

	history, err := store.GetEvents(ctx, math.Inf(-1))
	require.Error(t, err)
	assert.Nil(t, history)
	assert.True(t, appErrors.IsUnsupportedKeyType(err))

	table.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
	table.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}
