package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/GriffinCanCode/applaunchd/internal/domain/lifecycle"
)

// launcherFile mirrors proto/applaunch/applaunch.proto so tests can talk
// to the service the way a generated client would.
func launcherFile(t *testing.T) protoreflect.FileDescriptor {
	t.Helper()

	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()
	boolean := descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum()
	message := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()

	field := func(name string, num int32, typ *descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(num),
			Label:  optional,
			Type:   typ,
		}
	}
	msg := func(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
		return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
	}

	apps := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("apps"),
		Number:   proto.Int32(1),
		Label:    repeated,
		Type:     message,
		TypeName: proto.String(".automotivegradelinux.AppInfo"),
	}
	app := &descriptorpb.FieldDescriptorProto{
		Name:       proto.String("app"),
		Number:     proto.Int32(1),
		Label:      optional,
		Type:       message,
		TypeName:   proto.String(".automotivegradelinux.AppStatus"),
		OneofIndex: proto.Int32(0),
	}
	statusResponse := msg("StatusResponse", app)
	statusResponse.OneofDecl = []*descriptorpb.OneofDescriptorProto{{Name: proto.String("status")}}

	fd, err := protodesc.NewFile(&descriptorpb.FileDescriptorProto{
		Name:    proto.String("applaunch.proto"),
		Package: proto.String("automotivegradelinux"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			msg("StartRequest", field("id", 1, str)),
			msg("StartResponse", field("status", 1, boolean), field("message", 2, str)),
			msg("ListRequest"),
			msg("AppInfo", field("id", 1, str), field("name", 2, str), field("icon_path", 3, str)),
			msg("ListResponse", apps),
			msg("StatusRequest"),
			msg("AppStatus", field("id", 1, str), field("status", 2, str)),
			statusResponse,
		},
	}, nil)
	require.NoError(t, err)
	return fd
}

type dynamicFile struct {
	fd protoreflect.FileDescriptor
}

func (f dynamicFile) new(name string) *dynamicpb.Message {
	return dynamicpb.NewMessage(f.fd.Messages().ByName(protoreflect.Name(name)))
}

func set(m *dynamicpb.Message, field string, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(field)), v)
}

func get(m protoreflect.Message, field string) protoreflect.Value {
	return m.Get(m.Descriptor().Fields().ByName(protoreflect.Name(field)))
}

func TestWireMatchesProtobufRuntime(t *testing.T) {
	f := dynamicFile{launcherFile(t)}
	codec := protoCodec{}

	t.Run("start response", func(t *testing.T) {
		data, err := codec.Marshal(&StartResponse{Status: true, Message: "ok"})
		require.NoError(t, err)

		got := f.new("StartResponse")
		require.NoError(t, proto.Unmarshal(data, got))
		assert.True(t, get(got, "status").Bool())
		assert.Equal(t, "ok", get(got, "message").String())
	})

	t.Run("list response", func(t *testing.T) {
		resp := f.new("ListResponse")
		list := resp.Mutable(resp.Descriptor().Fields().ByName("apps")).List()
		for _, id := range []string{"radio", "navigation"} {
			info := f.new("AppInfo")
			set(info, "id", protoreflect.ValueOfString(id))
			set(info, "name", protoreflect.ValueOfString(id+" app"))
			list.Append(protoreflect.ValueOfMessage(info))
		}
		data, err := proto.Marshal(resp)
		require.NoError(t, err)

		var got ListResponse
		require.NoError(t, codec.Unmarshal(data, &got))
		assert.Equal(t, []AppInfo{
			{ID: "radio", Name: "radio app"},
			{ID: "navigation", Name: "navigation app"},
		}, got.Apps)

		back, err := codec.Marshal(&got)
		require.NoError(t, err)
		again := f.new("ListResponse")
		require.NoError(t, proto.Unmarshal(back, again))
		assert.True(t, proto.Equal(resp, again))
	})

	t.Run("status response", func(t *testing.T) {
		data, err := codec.Marshal(&StatusResponse{App: &AppStatus{ID: "radio", Status: "started"}})
		require.NoError(t, err)

		got := f.new("StatusResponse")
		require.NoError(t, proto.Unmarshal(data, got))
		app := get(got, "app").Message()
		assert.Equal(t, "radio", get(app, "id").String())
		assert.Equal(t, "started", get(app, "status").String())
	})

	t.Run("empty oneof member is kept", func(t *testing.T) {
		data, err := codec.Marshal(&StatusResponse{App: &AppStatus{}})
		require.NoError(t, err)

		var got StatusResponse
		require.NoError(t, codec.Unmarshal(data, &got))
		assert.NotNil(t, got.App)
	})
}

func TestWireSkipsUnknownFields(t *testing.T) {
	data := protowire.AppendTag(nil, 9, protowire.VarintType)
	data = protowire.AppendVarint(data, 42)
	data = appendString(data, 1, "radio")

	var req StartRequest
	require.NoError(t, protoCodec{}.Unmarshal(data, &req))
	assert.Equal(t, "radio", req.ID)
}

func TestWireRejectsTruncatedInput(t *testing.T) {
	data := appendString(nil, 1, "radio")

	var req StartRequest
	assert.Error(t, protoCodec{}.Unmarshal(data[:len(data)-2], &req))
}

func TestCodecRejectsPlainValues(t *testing.T) {
	_, err := protoCodec{}.Marshal(struct{}{})
	assert.Error(t, err)
}

func TestDefaultCodecClient(t *testing.T) {
	h := newHarness(t, true)
	f := dynamicFile{launcherFile(t)}
	ctx := context.Background()

	list := f.new("ListResponse")
	require.NoError(t, h.conn.Invoke(ctx, MethodListApplications, f.new("ListRequest"), list))
	apps := get(list, "apps").List()
	require.Equal(t, 2, apps.Len())
	assert.Equal(t, "radio", get(apps.Get(0).Message(), "id").String())
	assert.Equal(t, "Radio", get(apps.Get(0).Message(), "name").String())

	unknown := f.new("StartRequest")
	set(unknown, "id", protoreflect.ValueOfString("nonexistent"))
	err := h.conn.Invoke(ctx, MethodStartApplication, unknown, f.new("StartResponse"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	// Stream a started event to a protobuf subscriber
	h.sup.On("Watch", "agl-app@radio.service").Return(nil)
	h.sup.On("StartUnit", mock.Anything, "agl-app@radio.service").Return(nil)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := h.conn.NewStream(streamCtx, &grpc.StreamDesc{ServerStreams: true}, MethodGetStatusEvents)
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(f.new("StatusRequest")))
	require.NoError(t, stream.CloseSend())
	require.Eventually(t, func() bool { return h.broadcaster.Count() == 1 }, 2*time.Second, time.Millisecond)

	start := f.new("StartRequest")
	set(start, "id", protoreflect.ValueOfString("radio"))
	resp := f.new("StartResponse")
	require.NoError(t, h.conn.Invoke(ctx, MethodStartApplication, start, resp))
	assert.True(t, get(resp, "status").Bool())

	require.True(t, h.sup.Notify("agl-app@radio.service", lifecycle.PropertyActiveState, lifecycle.StateActive))

	ev := f.new("StatusResponse")
	require.NoError(t, stream.RecvMsg(ev))
	app := get(ev, "app").Message()
	assert.Equal(t, "radio", get(app, "id").String())
	assert.Equal(t, "started", get(app, "status").String())
}

func TestJSONClient(t *testing.T) {
	h := newHarness(t, true)

	client, err := NewClient("passthrough:///bufnet", h.dialer, WithJSON())
	require.NoError(t, err)
	defer client.Close()

	apps, err := client.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []AppInfo{
		{ID: "radio", Name: "Radio"},
		{ID: "navigation", Name: "Navigation"},
	}, apps)
}
