package grpc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireMessage is implemented by the launcher messages. The encoding is
// the proto3 binary form of proto/applaunch/applaunch.proto.
type wireMessage interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendWire(nil))
}

// fieldFunc decodes one known field from b and returns the bytes it
// consumed. ok=false leaves the field to be skipped as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, ok bool, err error)

func consumeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, ok, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, bool, error) {
	if typ != protowire.BytesType {
		return 0, false, nil
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n, true, nil
}

func consumeMessage(typ protowire.Type, b []byte, dst wireMessage) (int, bool, error) {
	if typ != protowire.BytesType {
		return 0, false, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, true, nil
	}
	if err := dst.unmarshalWire(v); err != nil {
		return 0, true, fmt.Errorf("nested message: %w", err)
	}
	return n, true, nil
}

func (m *StartRequest) appendWire(b []byte) []byte {
	return appendString(b, 1, m.ID)
}

func (m *StartRequest) unmarshalWire(b []byte) error {
	*m = StartRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num == 1 {
			return consumeString(typ, b, &m.ID)
		}
		return 0, false, nil
	})
}

func (m *StartResponse) appendWire(b []byte) []byte {
	if m.Status {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return appendString(b, 2, m.Message)
}

func (m *StartResponse) unmarshalWire(b []byte) error {
	*m = StartResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Status = protowire.DecodeBool(v)
			return n, true, nil
		case num == 2:
			return consumeString(typ, b, &m.Message)
		}
		return 0, false, nil
	})
}

func (m *ListRequest) appendWire(b []byte) []byte { return b }

func (m *ListRequest) unmarshalWire(b []byte) error {
	return consumeFields(b, func(protowire.Number, protowire.Type, []byte) (int, bool, error) {
		return 0, false, nil
	})
}

func (m *AppInfo) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.Name)
	return appendString(b, 3, m.IconPath)
}

func (m *AppInfo) unmarshalWire(b []byte) error {
	*m = AppInfo{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.ID)
		case 2:
			return consumeString(typ, b, &m.Name)
		case 3:
			return consumeString(typ, b, &m.IconPath)
		}
		return 0, false, nil
	})
}

func (m *ListResponse) appendWire(b []byte) []byte {
	for i := range m.Apps {
		b = appendMessage(b, 1, &m.Apps[i])
	}
	return b
}

func (m *ListResponse) unmarshalWire(b []byte) error {
	*m = ListResponse{Apps: []AppInfo{}}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num != 1 {
			return 0, false, nil
		}
		var app AppInfo
		n, ok, err := consumeMessage(typ, b, &app)
		if ok && err == nil && n >= 0 {
			m.Apps = append(m.Apps, app)
		}
		return n, ok, err
	})
}

func (m *StatusRequest) appendWire(b []byte) []byte { return b }

func (m *StatusRequest) unmarshalWire(b []byte) error {
	return consumeFields(b, func(protowire.Number, protowire.Type, []byte) (int, bool, error) {
		return 0, false, nil
	})
}

func (m *AppStatus) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.ID)
	return appendString(b, 2, m.Status)
}

func (m *AppStatus) unmarshalWire(b []byte) error {
	*m = AppStatus{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.ID)
		case 2:
			return consumeString(typ, b, &m.Status)
		}
		return 0, false, nil
	})
}

// A set oneof member is written even when the member is empty.
func (m *StatusResponse) appendWire(b []byte) []byte {
	if m.App != nil {
		b = appendMessage(b, 1, m.App)
	}
	return b
}

func (m *StatusResponse) unmarshalWire(b []byte) error {
	*m = StatusResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num != 1 {
			return 0, false, nil
		}
		app := new(AppStatus)
		n, ok, err := consumeMessage(typ, b, app)
		if ok && err == nil && n >= 0 {
			m.App = app
		}
		return n, ok, err
	})
}
