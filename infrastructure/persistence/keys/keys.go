// Package keys converts aggregate identifiers to and from the DynamoDB
// attribute that stores them.
//
// The table has no notion of the aggregate's key type, so every supported
// primitive kind carries an explicit codec. Anything outside the table is
// rejected with an UNSUPPORTED_KEY_TYPE error instead of being guessed at.
package keys

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	appErrors "dynamo-eventstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Binary is a raw byte-sequence aggregate key. It is string-backed so that it
// stays comparable; the bytes are stored verbatim as a B attribute.
type Binary string

// Bytes returns a copy of the key's raw bytes.
func (b Binary) Bytes() []byte { return []byte(b) }

// String renders the key as base64 for logs and URLs.
func (b Binary) String() string { return base64.StdEncoding.EncodeToString([]byte(b)) }

// Kind enumerates the primitive kinds an aggregate key may have.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindRune
	KindString
	KindTime
	KindUUID
	KindBinary
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindInt:     "int",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint:    "uint",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindRune:    "rune",
	KindString:  "string",
	KindTime:    "time",
	KindUUID:    "uuid",
	KindBinary:  "binary",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Codec converts one aggregate key type to and from a key-eligible
// DynamoDB scalar (S, N or B).
type Codec[K comparable] interface {
	Kind() Kind
	// ScalarType is the attribute type used when the table is provisioned.
	ScalarType() types.ScalarAttributeType
	Encode(key K) types.AttributeValue
	// Decode fails with an UNSUPPORTED_KEY_TYPE error when the stored value
	// cannot be represented as K.
	Decode(av types.AttributeValue) (K, error)
}

type codec[K comparable] struct {
	kind   Kind
	scalar types.ScalarAttributeType
	encode func(K) types.AttributeValue
	decode func(types.AttributeValue) (K, bool)
}

func (c *codec[K]) Kind() Kind                            { return c.kind }
func (c *codec[K]) ScalarType() types.ScalarAttributeType { return c.scalar }
func (c *codec[K]) Encode(key K) types.AttributeValue     { return c.encode(key) }

func (c *codec[K]) Decode(av types.AttributeValue) (K, error) {
	if av == nil {
		var zero K
		return zero, notRepresentable[K](c.kind, "missing")
	}
	key, ok := c.decode(av)
	if !ok {
		return key, notRepresentable[K](c.kind, describe(av))
	}
	return key, nil
}

var (
	Bool Codec[bool] = &codec[bool]{
		kind:   KindBool,
		scalar: types.ScalarAttributeTypeN,
		encode: func(v bool) types.AttributeValue {
			if v {
				return &types.AttributeValueMemberN{Value: "1"}
			}
			return &types.AttributeValueMemberN{Value: "0"}
		},
		decode: decodeBool,
	}

	Int     Codec[int]       = signed[int](KindInt, strconv.IntSize)
	Int8    Codec[int8]      = signed[int8](KindInt8, 8)
	Int16   Codec[int16]     = signed[int16](KindInt16, 16)
	Int32   Codec[int32]     = signed[int32](KindInt32, 32)
	Int64   Codec[int64]     = signed[int64](KindInt64, 64)
	Uint    Codec[uint]      = unsigned[uint](KindUint, strconv.IntSize)
	Uint8   Codec[uint8]     = unsigned[uint8](KindUint8, 8)
	Uint16  Codec[uint16]    = unsigned[uint16](KindUint16, 16)
	Uint32  Codec[uint32]    = unsigned[uint32](KindUint32, 32)
	Uint64  Codec[uint64]    = unsigned[uint64](KindUint64, 64)

	// Float keys must be finite. NaN and the infinities have no DynamoDB
	// number form, are refused on decode and fail the store's key check.
	Float32 Codec[float32] = float[float32](KindFloat32, 32)
	Float64 Codec[float64] = float[float64](KindFloat64, 64)

	// Rune stores a single character as a one-rune S attribute. rune aliases
	// int32, so it is never picked by For and must be passed explicitly.
	Rune Codec[rune] = &codec[rune]{
		kind:   KindRune,
		scalar: types.ScalarAttributeTypeS,
		encode: func(v rune) types.AttributeValue {
			return &types.AttributeValueMemberS{Value: string(v)}
		},
		decode: func(av types.AttributeValue) (rune, bool) {
			s, ok := av.(*types.AttributeValueMemberS)
			if !ok || utf8.RuneCountInString(s.Value) != 1 {
				return 0, false
			}
			r, _ := utf8.DecodeRuneInString(s.Value)
			return r, r != utf8.RuneError
		},
	}

	String Codec[string] = &codec[string]{
		kind:   KindString,
		scalar: types.ScalarAttributeTypeS,
		encode: func(v string) types.AttributeValue {
			return &types.AttributeValueMemberS{Value: v}
		},
		decode: func(av types.AttributeValue) (string, bool) {
			switch v := av.(type) {
			case *types.AttributeValueMemberS:
				return v.Value, true
			case *types.AttributeValueMemberN:
				return v.Value, true
			}
			return "", false
		},
	}

	// Time keys are stored as RFC 3339 strings in UTC and decoded in UTC
	// without a monotonic reading. Instants in other locations address the
	// same aggregate but only compare == after t.UTC().Round(0), so keys
	// should be normalized before use in maps or equality checks.
	Time Codec[time.Time] = &codec[time.Time]{
		kind:   KindTime,
		scalar: types.ScalarAttributeTypeS,
		encode: func(v time.Time) types.AttributeValue {
			return &types.AttributeValueMemberS{Value: v.UTC().Round(0).Format(time.RFC3339Nano)}
		},
		decode: func(av types.AttributeValue) (time.Time, bool) {
			s, ok := av.(*types.AttributeValueMemberS)
			if !ok {
				return time.Time{}, false
			}
			t, err := time.Parse(time.RFC3339Nano, s.Value)
			if err != nil {
				return time.Time{}, false
			}
			return t.UTC(), true
		},
	}

	UUID Codec[uuid.UUID] = &codec[uuid.UUID]{
		kind:   KindUUID,
		scalar: types.ScalarAttributeTypeS,
		encode: func(v uuid.UUID) types.AttributeValue {
			return &types.AttributeValueMemberS{Value: v.String()}
		},
		decode: func(av types.AttributeValue) (uuid.UUID, bool) {
			switch v := av.(type) {
			case *types.AttributeValueMemberS:
				id, err := uuid.Parse(v.Value)
				return id, err == nil
			case *types.AttributeValueMemberB:
				id, err := uuid.FromBytes(v.Value)
				return id, err == nil
			}
			return uuid.Nil, false
		},
	}

	Bytes Codec[Binary] = &codec[Binary]{
		kind:   KindBinary,
		scalar: types.ScalarAttributeTypeB,
		encode: func(v Binary) types.AttributeValue {
			return &types.AttributeValueMemberB{Value: []byte(v)}
		},
		decode: func(av types.AttributeValue) (Binary, bool) {
			b, ok := av.(*types.AttributeValueMemberB)
			if !ok {
				return "", false
			}
			return Binary(b.Value), true
		},
	}
)

// For returns the codec registered for K. Only the exact types of the kind
// table are accepted; named types and composites fail with an
// UNSUPPORTED_KEY_TYPE error.
func For[K comparable]() (Codec[K], error) {
	var zero K
	var c any
	switch any(zero).(type) {
	case bool:
		c = Bool
	case int:
		c = Int
	case int8:
		c = Int8
	case int16:
		c = Int16
	case int32:
		c = Int32
	case int64:
		c = Int64
	case uint:
		c = Uint
	case uint8:
		c = Uint8
	case uint16:
		c = Uint16
	case uint32:
		c = Uint32
	case uint64:
		c = Uint64
	case float32:
		c = Float32
	case float64:
		c = Float64
	case string:
		c = String
	case time.Time:
		c = Time
	case uuid.UUID:
		c = UUID
	case Binary:
		c = Bytes
	default:
		return nil, appErrors.NewUnsupportedKeyTypeError(typeName[K]())
	}
	return c.(Codec[K]), nil
}

// MustFor is For for package-level wiring; it panics on unsupported types.
func MustFor[K comparable]() Codec[K] {
	c, err := For[K]()
	if err != nil {
		panic(err)
	}
	return c
}

func signed[K ~int | ~int8 | ~int16 | ~int32 | ~int64](kind Kind, bits int) *codec[K] {
	return &codec[K]{
		kind:   kind,
		scalar: types.ScalarAttributeTypeN,
		encode: func(v K) types.AttributeValue {
			return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(v), 10)}
		},
		decode: func(av types.AttributeValue) (K, bool) {
			text, ok := numericText(av)
			if !ok {
				return 0, false
			}
			n, err := strconv.ParseInt(text, 10, bits)
			return K(n), err == nil
		},
	}
}

func unsigned[K ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](kind Kind, bits int) *codec[K] {
	return &codec[K]{
		kind:   kind,
		scalar: types.ScalarAttributeTypeN,
		encode: func(v K) types.AttributeValue {
			return &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(v), 10)}
		},
		decode: func(av types.AttributeValue) (K, bool) {
			text, ok := numericText(av)
			if !ok {
				return 0, false
			}
			n, err := strconv.ParseUint(text, 10, bits)
			return K(n), err == nil
		},
	}
}

func float[K ~float32 | ~float64](kind Kind, bits int) *codec[K] {
	return &codec[K]{
		kind:   kind,
		scalar: types.ScalarAttributeTypeN,
		encode: func(v K) types.AttributeValue {
			return &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(v), 'g', -1, bits)}
		},
		decode: func(av types.AttributeValue) (K, bool) {
			text, ok := numericText(av)
			if !ok {
				return 0, false
			}
			f, err := strconv.ParseFloat(text, bits)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, false
			}
			return K(f), true
		},
	}
}

func decodeBool(av types.AttributeValue) (bool, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberBOOL:
		return v.Value, true
	case *types.AttributeValueMemberN:
		switch v.Value {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	case *types.AttributeValueMemberS:
		b, err := strconv.ParseBool(v.Value)
		return b, err == nil
	}
	return false, false
}

// numericText accepts N attributes and numeric strings.
func numericText(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		return v.Value, true
	case *types.AttributeValueMemberS:
		return v.Value, true
	}
	return "", false
}

func describe(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberM:
		return "M"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberSS, *types.AttributeValueMemberNS, *types.AttributeValueMemberBS:
		return "set"
	}
	return fmt.Sprintf("%T", av)
}

func notRepresentable[K comparable](kind Kind, stored string) error {
	return appErrors.NewUnsupportedKeyTypeError(typeName[K]()).
		WithCause(fmt.Errorf("stored %s attribute is not representable as %s key", stored, kind))
}

func typeName[K comparable]() string {
	return reflect.TypeOf((*K)(nil)).Elem().String()
}
