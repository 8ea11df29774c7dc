package index

import "fmt"

// OpKind identifies an index mutation.
type OpKind uint8

const (
	OpInsert OpKind = iota + 1
	OpRemove
	OpClear
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is one mutation of the key/value state. Key is unused for OpClear and
// Value is only meaningful for OpInsert.
type Op[K comparable, V any] struct {
	Kind  OpKind
	Key   K
	Value V
}

func Insert[K comparable, V any](key K, value V) Op[K, V] {
	return Op[K, V]{Kind: OpInsert, Key: key, Value: value}
}

func Remove[K comparable, V any](key K) Op[K, V] {
	return Op[K, V]{Kind: OpRemove, Key: key}
}

func Clear[K comparable, V any]() Op[K, V] {
	return Op[K, V]{Kind: OpClear}
}

func (op Op[K, V]) String() string {
	switch op.Kind {
	case OpInsert:
		return fmt.Sprintf("insert(%v=%v)", op.Key, op.Value)
	case OpRemove:
		return fmt.Sprintf("remove(%v)", op.Key)
	default:
		return op.Kind.String()
	}
}

// apply folds op into m.
func (op Op[K, V]) apply(m map[K]V) {
	switch op.Kind {
	case OpInsert:
		m[op.Key] = op.Value
	case OpRemove:
		delete(m, op.Key)
	case OpClear:
		clear(m)
	}
}

// Projector maps an event to the ops it contributes. Project must be a pure
// function of its input: rewinds call it again for events already applied.
type Projector[E any, K comparable, V any] interface {
	Project(event E) []Op[K, V]
}

// ProjectorFunc adapts a plain function to Projector.
type ProjectorFunc[E any, K comparable, V any] func(event E) []Op[K, V]

func (f ProjectorFunc[E, K, V]) Project(event E) []Op[K, V] { return f(event) }
