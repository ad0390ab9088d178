package grpc

import (
	"fmt"

	"github.com/bytedance/sonic"
	"google.golang.org/grpc/encoding"
	protoenc "google.golang.org/grpc/encoding/proto"
	"google.golang.org/protobuf/proto"
)

// CodecName is the content-subtype clients select with
// grpc.CallContentSubtype to talk to the launcher service in JSON.
// Requests without a subtype use protobuf.
const CodecName = "json"

// jsonCodec carries plain Go structs using sonic
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// protoCodec replaces the default protobuf codec. Launcher messages use
// their own wire encoding; generated messages such as the health service
// go through the protobuf runtime.
type protoCodec struct{}

func (protoCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("failed to marshal, message is %T, want proto.Message", v)
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		return m.unmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("failed to unmarshal, message is %T, want proto.Message", v)
}

func (protoCodec) Name() string {
	return protoenc.Name
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
	encoding.RegisterCodec(protoCodec{})
}
