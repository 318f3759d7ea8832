package codec

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	timeType      = reflect.TypeOf((*time.Time)(nil)).Elem()
	marshalerType = reflect.TypeOf((*attributevalue.Marshaler)(nil)).Elem()
)

// shape mirrors how a Go type is marshaled so attribute names can be
// renamed at every depth. A struct shape has fields; a list or map shape
// has elem. A nil shape means the value holds no struct-derived names.
type shape struct {
	byName   map[string]*fieldShape // keyed by marshaled name
	byStored map[string]*fieldShape // keyed by stored (lower camel) name
	elem     *shape
}

type fieldShape struct {
	name   string
	stored string
	shape  *shape
}

func shapeOf(typ reflect.Type) *shape {
	return buildShape(typ, make(map[reflect.Type]*shape))
}

func buildShape(typ reflect.Type, seen map[reflect.Type]*shape) *shape {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == timeType || typ.Implements(marshalerType) || reflect.PointerTo(typ).Implements(marshalerType) {
		return nil
	}

	switch typ.Kind() {
	case reflect.Struct:
		if s, ok := seen[typ]; ok {
			return s
		}
		s := &shape{
			byName:   make(map[string]*fieldShape),
			byStored: make(map[string]*fieldShape),
		}
		seen[typ] = s
		collectFields(typ, s, seen)
		return s
	case reflect.Slice, reflect.Array, reflect.Map:
		elem := buildShape(typ.Elem(), seen)
		if elem == nil {
			return nil
		}
		return &shape{elem: elem}
	default:
		return nil
	}
}

// collectFields walks the exported fields the way the attribute marshaler
// does, flattening untagged embedded structs.
func collectFields(typ reflect.Type, s *shape, seen map[reflect.Type]*shape) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("dynamodbav"), ",")
		if name == "-" {
			continue
		}

		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				collectFields(embedded, s, seen)
				continue
			}
		}

		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}

		f := &fieldShape{
			name:   name,
			stored: lowerCamel(name),
			shape:  buildShape(field.Type, seen),
		}
		s.byName[f.name] = f
		s.byStored[f.stored] = f
	}
}

// store renames marshaled names to their stored form and drops nulls
func (s *shape) store(av types.AttributeValue) types.AttributeValue {
	if s == nil {
		return compact(av)
	}

	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		m := make(map[string]types.AttributeValue, len(v.Value))
		for name, inner := range v.Value {
			if isNull(inner) {
				continue
			}
			switch {
			case s.elem != nil:
				m[name] = s.elem.store(inner)
			case s.byName[name] != nil:
				f := s.byName[name]
				m[f.stored] = f.shape.store(inner)
			default:
				m[name] = compact(inner)
			}
		}
		return &types.AttributeValueMemberM{Value: m}
	case *types.AttributeValueMemberL:
		l := make([]types.AttributeValue, len(v.Value))
		for i, inner := range v.Value {
			if s.elem != nil {
				l[i] = s.elem.store(inner)
			} else {
				l[i] = compact(inner)
			}
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return av
	}
}

// load maps stored names back to the names the unmarshaler expects
func (s *shape) load(av types.AttributeValue) types.AttributeValue {
	if s == nil {
		return av
	}

	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		m := make(map[string]types.AttributeValue, len(v.Value))
		for name, inner := range v.Value {
			switch {
			case s.elem != nil:
				m[name] = s.elem.load(inner)
			case s.byStored[name] != nil:
				f := s.byStored[name]
				m[f.name] = f.shape.load(inner)
			default:
				m[name] = inner
			}
		}
		return &types.AttributeValueMemberM{Value: m}
	case *types.AttributeValueMemberL:
		if s.elem == nil {
			return av
		}
		l := make([]types.AttributeValue, len(v.Value))
		for i, inner := range v.Value {
			l[i] = s.elem.load(inner)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return av
	}
}

// compact removes null members from maps that carry no struct names
func compact(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		m := make(map[string]types.AttributeValue, len(v.Value))
		for name, inner := range v.Value {
			if isNull(inner) {
				continue
			}
			m[name] = compact(inner)
		}
		return &types.AttributeValueMemberM{Value: m}
	case *types.AttributeValueMemberL:
		// list positions are meaningful, only their contents are compacted
		l := make([]types.AttributeValue, len(v.Value))
		for i, inner := range v.Value {
			l[i] = compact(inner)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return av
	}
}

func isNull(av types.AttributeValue) bool {
	if av == nil {
		return true
	}
	null, ok := av.(*types.AttributeValueMemberNULL)
	return ok && null.Value
}

// lowerCamel lowercases the leading word of a name: Owner -> owner,
// URLPath -> urlPath, ID -> id.
func lowerCamel(name string) string {
	runes := []rune(name)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
