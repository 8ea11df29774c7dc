package eventlog

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
)

// Codec converts events to and from the bytes stored in a log entry.
type Codec[E any] interface {
	Name() string
	Marshal(event E) ([]byte, error)
	Unmarshal(data []byte) (E, error)
}

// JSONCodec stores events as JSON.
type JSONCodec[E any] struct{}

func (JSONCodec[E]) Name() string { return "json" }

func (JSONCodec[E]) Marshal(event E) ([]byte, error) { return json.Marshal(event) }

func (JSONCodec[E]) Unmarshal(data []byte) (E, error) {
	var ev E
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// MsgpackCodec stores events as MessagePack.
type MsgpackCodec[E any] struct{}

func (MsgpackCodec[E]) Name() string { return "msgpack" }

func (MsgpackCodec[E]) Marshal(event E) ([]byte, error) { return msgpack.Marshal(event) }

func (MsgpackCodec[E]) Unmarshal(data []byte) (E, error) {
	var ev E
	err := msgpack.Unmarshal(data, &ev)
	return ev, err
}

// ProtoCodec stores protobuf messages in wire format. M is a generated
// message pointer type such as *wrapperspb.StringValue.
type ProtoCodec[M proto.Message] struct{}

func (ProtoCodec[M]) Name() string { return "proto" }

func (ProtoCodec[M]) Marshal(event M) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(event)
}

func (ProtoCodec[M]) Unmarshal(data []byte) (M, error) {
	var zero M
	m := zero.ProtoReflect().New().Interface().(M)
	if err := proto.Unmarshal(data, m); err != nil {
		return zero, err
	}
	return m, nil
}
