// Package itemize converts in-memory list data into one typed data node per
// item, so the engine can track provenance between a list and its elements.
package itemize

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/viant/toolbox"
	"github.com/viant/x"
)

// Kind enumerates the supported value kinds. The enumeration is closed: an
// item whose type maps to no kind fails itemization explicitly rather than
// being dropped.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindMap    Kind = "map"
	KindList   Kind = "list"
)

// Node is one typed data node produced from a list item.
type Node struct {
	Kind  Kind        `json:"kind"`
	Value interface{} `json:"value"`
}

// Service itemizes lists using a registry of supported kinds.
type Service struct {
	registry *x.Registry
}

// New creates an itemizer with every supported kind registered.
func New() *Service {
	registry := x.NewRegistry()
	registry.Register(x.NewType(reflect.TypeOf(false), x.WithName(string(KindBool))))
	registry.Register(x.NewType(reflect.TypeOf(0), x.WithName(string(KindInt))))
	registry.Register(x.NewType(reflect.TypeOf(0.0), x.WithName(string(KindFloat))))
	registry.Register(x.NewType(reflect.TypeOf(""), x.WithName(string(KindString))))
	registry.Register(x.NewType(reflect.TypeOf(map[string]interface{}{}), x.WithName(string(KindMap))))
	registry.Register(x.NewType(reflect.TypeOf([]interface{}{}), x.WithName(string(KindList))))
	return &Service{registry: registry}
}

// Itemize converts each list item into a typed node, keyed "item_NN" with the
// index zero-padded to the list's width. Items of unsupported type abort the
// whole call with an error naming the offending index and type.
func (s *Service) Itemize(items []interface{}) (map[string]*Node, error) {
	width := len(strconv.Itoa(len(items)))
	out := make(map[string]*Node, len(items))
	for index, item := range items {
		node, err := s.itemizeValue(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", index, err)
		}
		out[fmt.Sprintf("item_%0*d", width, index)] = node
	}
	return out, nil
}

func (s *Service) itemizeValue(value interface{}) (*Node, error) {
	kind, ok := kindOf(value)
	if !ok {
		return nil, fmt.Errorf("unsupported type %T; supported kinds: %v", value, supportedKinds())
	}
	registered := s.registry.Lookup(string(kind))
	if registered == nil {
		return nil, fmt.Errorf("kind %s is not registered", kind)
	}
	coerced := coerce(kind, value)
	if !reflect.TypeOf(coerced).AssignableTo(registered.Type) {
		return nil, fmt.Errorf("coerced %T is not assignable to registered kind %s", coerced, kind)
	}
	return &Node{Kind: kind, Value: coerced}, nil
}

// kindOf maps a Go value onto the closed kind enumeration.
func kindOf(value interface{}) (Kind, bool) {
	if value == nil {
		return "", false
	}
	switch value.(type) {
	case bool:
		return KindBool, true
	case string:
		return KindString, true
	case map[string]interface{}:
		return KindMap, true
	case []interface{}:
		return KindList, true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	}
	return "", false
}

func coerce(kind Kind, value interface{}) interface{} {
	switch kind {
	case KindBool:
		return toolbox.AsBoolean(value)
	case KindInt:
		return toolbox.AsInt(value)
	case KindFloat:
		return toolbox.AsFloat(value)
	case KindString:
		return toolbox.AsString(value)
	case KindMap:
		return toolbox.AsMap(value)
	default:
		return toolbox.AsSlice(value)
	}
}

func supportedKinds() []Kind {
	return []Kind{KindBool, KindInt, KindFloat, KindString, KindMap, KindList}
}
