// Package codec converts events to and from stored documents.
//
// A document carries the event's fields under lower camel case names, the
// aggregate key written by the key codec, the version as a number and the
// discriminator naming the concrete event type. Null attributes are never
// written.
package codec

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-playground/validator/v10"

	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/infrastructure/persistence/abstractions"
	"dynamo-eventstore/infrastructure/persistence/keys"
	appErrors "dynamo-eventstore/pkg/errors"
)

// DiscriminatorAttribute holds the registered name of the event type
const DiscriminatorAttribute = "$type"

// Codec encodes and decodes the events of one registry
type Codec[K comparable] struct {
	registry *Registry[K]
	keys     keys.Codec[K]
	validate *validator.Validate
}

// New creates a codec over the registry using keyCodec for the aggregate id
func New[K comparable](registry *Registry[K], keyCodec keys.Codec[K]) *Codec[K] {
	return &Codec[K]{
		registry: registry,
		keys:     keyCodec,
		validate: validator.New(),
	}
}

// Encode converts an event into the document that is written to the table
func (c *Codec[K]) Encode(event events.AggregateEvent[K]) (abstractions.Document, error) {
	if event == nil || isNilPointer(event) {
		return nil, appErrors.NewValidationError("event cannot be nil")
	}

	reg, ok := c.registry.lookupType(event)
	if !ok {
		return nil, appErrors.NewValidationError(fmt.Sprintf("event type %T is not registered", event)).
			WithCode("UNREGISTERED_EVENT_TYPE")
	}

	if err := c.validate.Struct(event); err != nil {
		return nil, appErrors.NewValidationError(fmt.Sprintf("%s event is invalid", reg.name)).
			WithCause(err)
	}

	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return nil, appErrors.NewValidationError(fmt.Sprintf("%s event cannot be serialized", reg.name)).
			WithCause(err)
	}

	pk, err := c.EncodeKey(event.AggregateID())
	if err != nil {
		return nil, err
	}

	stored := reg.shape.store(&types.AttributeValueMemberM{Value: item}).(*types.AttributeValueMemberM)
	doc := abstractions.Document(stored.Value)
	doc[abstractions.PartitionKeyAttribute] = pk
	doc[abstractions.SortKeyAttribute] = &types.AttributeValueMemberN{
		Value: strconv.FormatInt(event.AggregateVersion(), 10),
	}
	doc[DiscriminatorAttribute] = &types.AttributeValueMemberS{Value: reg.name}
	return doc, nil
}

// Decode rebuilds the concrete event a document was encoded from
func (c *Codec[K]) Decode(doc abstractions.Document) (events.AggregateEvent[K], error) {
	disc, ok := doc[DiscriminatorAttribute].(*types.AttributeValueMemberS)
	if !ok || disc.Value == "" {
		return nil, appErrors.NewDeserializationError("document has no event type discriminator")
	}

	reg, ok := c.registry.lookupName(disc.Value)
	if !ok {
		return nil, appErrors.NewDeserializationError(fmt.Sprintf("unknown event type %q", disc.Value))
	}

	id, err := c.DecodeKey(doc)
	if err != nil {
		return nil, err
	}

	if _, err := decodeVersion(doc); err != nil {
		return nil, err
	}

	fields := make(map[string]types.AttributeValue, len(doc))
	for name, av := range doc {
		if name == DiscriminatorAttribute || name == abstractions.PartitionKeyAttribute {
			continue
		}
		fields[name] = av
	}
	item := reg.shape.load(&types.AttributeValueMemberM{Value: fields}).(*types.AttributeValueMemberM)

	event := reg.newEvent()
	if err := attributevalue.UnmarshalMap(item.Value, event); err != nil {
		return nil, appErrors.NewDeserializationError(fmt.Sprintf("malformed %s document", reg.name)).
			WithCause(err)
	}
	event.SetAggregateID(id)

	if err := c.validate.Struct(event); err != nil {
		return nil, appErrors.NewDeserializationError(fmt.Sprintf("%s document is missing required fields", reg.name)).
			WithCause(err)
	}
	return event, nil
}

// EncodeKey writes the aggregate id and refuses ids whose stored form
// would not read back, such as NaN float keys.
func (c *Codec[K]) EncodeKey(id K) (types.AttributeValue, error) {
	av := c.keys.Encode(id)
	if _, err := c.keys.Decode(av); err != nil {
		return nil, err
	}
	return av, nil
}

// DecodeKey extracts the aggregate id of a document
func (c *Codec[K]) DecodeKey(doc abstractions.Document) (K, error) {
	av, ok := doc[abstractions.PartitionKeyAttribute]
	if !ok {
		var zero K
		return zero, appErrors.NewDeserializationError("document has no " + abstractions.PartitionKeyAttribute)
	}
	return c.keys.Decode(av)
}

func decodeVersion(doc abstractions.Document) (int64, error) {
	n, ok := doc[abstractions.SortKeyAttribute].(*types.AttributeValueMemberN)
	if !ok {
		return 0, appErrors.NewDeserializationError("document has no numeric " + abstractions.SortKeyAttribute)
	}
	version, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, appErrors.NewDeserializationError("malformed " + abstractions.SortKeyAttribute).WithCause(err)
	}
	return version, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
