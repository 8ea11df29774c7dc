package kv

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tvanderstad/parasol-db/internal/eventlog"
	"github.com/tvanderstad/parasol-db/internal/index"
)

// Op names a key/value command.
type Op string

const (
	OpPut   Op = "put"
	OpDel   Op = "del"
	OpClear Op = "clear"
)

// Command is the event stored in a key/value table.
type Command struct {
	Op    Op     `json:"op" msgpack:"op"`
	Key   string `json:"key,omitempty" msgpack:"key,omitempty"`
	Value string `json:"value,omitempty" msgpack:"value,omitempty"`
}

func Put(key, value string) Command { return Command{Op: OpPut, Key: key, Value: value} }

func Del(key string) Command { return Command{Op: OpDel, Key: key} }

func ClearAll() Command { return Command{Op: OpClear} }

func (c Command) String() string {
	switch c.Op {
	case OpPut:
		return fmt.Sprintf("put %s=%s", c.Key, c.Value)
	case OpDel:
		return "del " + c.Key
	default:
		return string(c.Op)
	}
}

// Projector maps commands to index ops. Unknown ops project to nothing.
var Projector = index.ProjectorFunc[Command, string, string](func(c Command) []index.Op[string, string] {
	switch c.Op {
	case OpPut:
		return []index.Op[string, string]{index.Insert(c.Key, c.Value)}
	case OpDel:
		return []index.Op[string, string]{index.Remove[string, string](c.Key)}
	case OpClear:
		return []index.Op[string, string]{index.Clear[string, string]()}
	default:
		return nil
	}
})

// Codec returns the event codec registered under name.
func Codec(name string) (eventlog.Codec[Command], error) {
	switch name {
	case "json", "":
		return eventlog.JSONCodec[Command]{}, nil
	case "msgpack":
		return eventlog.MsgpackCodec[Command]{}, nil
	case "proto":
		return protoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// protoCodec stores commands as protobuf Struct messages with string fields
// op, key and value.
type protoCodec struct{}

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Marshal(c Command) ([]byte, error) {
	fields := map[string]*structpb.Value{"op": structpb.NewStringValue(string(c.Op))}
	if c.Key != "" {
		fields["key"] = structpb.NewStringValue(c.Key)
	}
	if c.Value != "" {
		fields["value"] = structpb.NewStringValue(c.Value)
	}
	return eventlog.ProtoCodec[*structpb.Struct]{}.Marshal(&structpb.Struct{Fields: fields})
}

func (protoCodec) Unmarshal(data []byte) (Command, error) {
	m, err := eventlog.ProtoCodec[*structpb.Struct]{}.Unmarshal(data)
	if err != nil {
		return Command{}, err
	}
	f := m.GetFields()
	return Command{
		Op:    Op(f["op"].GetStringValue()),
		Key:   f["key"].GetStringValue(),
		Value: f["value"].GetStringValue(),
	}, nil
}
