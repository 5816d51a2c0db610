package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	tools := NewToolRegistry()
	require.NoError(t, tools.Register(Tool{
		Name:        "echo",
		Description: "echoes its input",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		Handler: func(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
			var args struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, InvalidParamsError("bad args: %v", err)
			}
			return map[string]string{"echo": args.Text}, nil
		},
	}))

	resources := NewResourceRegistry()
	require.NoError(t, resources.Register(Resource{
		URI:  "contextframe://dataset/info",
		Name: "dataset info",
		Handler: func(ctx context.Context, uri string) (ResourceContent, error) {
			return ResourceContent{URI: uri, MimeType: "application/json", Text: `{"rows":0}`}, nil
		},
	}))

	return NewDispatcher(tools, resources, ServerInfo{Name: "contextframe-mcp", Version: "test"}, nil)
}

func TestDispatcher_Initialize(t *testing.T) {
	d := newTestDispatcher(t)
	resp, has := d.Handle(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	require.True(t, has)

	var parsed JSONRPCResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	assert.Equal(t, "2.0", parsed.JSONRPC)
}

func TestDispatcher_ToolsCall_Success(t *testing.T) {
	d := newTestDispatcher(t)
	req := `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`
	resp, has := d.Handle(context.Background(), json.RawMessage(req))
	require.True(t, has)

	var parsed JSONRPCResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	assert.NotNil(t, parsed.Result)
}

func TestDispatcher_ToolsCall_InvalidArguments(t *testing.T) {
	d := newTestDispatcher(t)
	req := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`
	resp, has := d.Handle(context.Background(), json.RawMessage(req))
	require.True(t, has)

	var parsed JSONRPCErrorResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	require.NotNil(t, parsed.Error)
	assert.Equal(t, InvalidParams, parsed.Error.Code)
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	resp, has := d.Handle(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"bogus"}`))
	require.True(t, has)

	var parsed JSONRPCErrorResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	require.NotNil(t, parsed.Error)
	assert.Equal(t, MethodNotFound, parsed.Error.Code)
}

func TestDispatcher_Shutdown_InvokesHookAndReturnsNull(t *testing.T) {
	d := newTestDispatcher(t)
	called := false
	d.OnShutdown = func(ctx context.Context) { called = true }

	resp, has := d.Handle(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`))
	require.True(t, has)
	assert.True(t, called)

	var parsed JSONRPCResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	assert.Nil(t, parsed.Result)
}

func TestDispatcher_ToolsCall_DefaultTimeoutSurfacesAsCodeTimeout(t *testing.T) {
	tools := NewToolRegistry()
	require.NoError(t, tools.Register(Tool{
		Name: "slow",
		Handler: func(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
			<-ctx.Done()
			return nil, NewToolError(CodeDatasetError, "dataset call failed", ctx.Err())
		},
	}))
	d := NewDispatcher(tools, NewResourceRegistry(), ServerInfo{Name: "contextframe-mcp", Version: "test"}, nil)
	d.DefaultToolTimeout = time.Millisecond

	resp, has := d.Handle(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"slow","arguments":{}}}`))
	require.True(t, has)

	var parsed JSONRPCErrorResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	require.NotNil(t, parsed.Error)
	assert.Equal(t, CodeTimeout, parsed.Error.Code)
}

func TestDispatcher_ToolsCall_ExistingDeadlineNotOverridden(t *testing.T) {
	tools := NewToolRegistry()
	var sawDeadline bool
	require.NoError(t, tools.Register(Tool{
		Name: "checksdeadline",
		Handler: func(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
			_, sawDeadline = ctx.Deadline()
			return "ok", nil
		},
	}))
	d := NewDispatcher(tools, NewResourceRegistry(), ServerInfo{Name: "contextframe-mcp", Version: "test"}, nil)
	d.DefaultToolTimeout = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, has := d.Handle(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"checksdeadline","arguments":{}}}`))
	require.True(t, has)
	assert.True(t, sawDeadline)
}

func TestDispatcher_Notification_NoResponse(t *testing.T) {
	d := newTestDispatcher(t)
	_, has := d.Handle(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","method":"ping"}`))
	assert.False(t, has)
}

func TestDispatcher_ResourcesRead(t *testing.T) {
	d := newTestDispatcher(t)
	req := `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"contextframe://dataset/info"}}`
	resp, has := d.Handle(context.Background(), json.RawMessage(req))
	require.True(t, has)

	var parsed JSONRPCResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	assert.NotNil(t, parsed.Result)
}

func TestDispatcher_InvalidJSON(t *testing.T) {
	d := newTestDispatcher(t)
	resp, has := d.Handle(context.Background(), json.RawMessage(`not json`))
	require.True(t, has)

	var parsed JSONRPCErrorResponse
	require.NoError(t, json.Unmarshal(resp, &parsed))
	require.NotNil(t, parsed.Error)
	assert.Equal(t, ParseError, parsed.Error.Code)
}

func TestToolRegistry_DuplicateRejected(t *testing.T) {
	tools := NewToolRegistry()
	tool := Tool{Name: "a", Handler: func(ctx context.Context, a json.RawMessage) (interface{}, error) { return nil, nil }}
	require.NoError(t, tools.Register(tool))
	assert.Error(t, tools.Register(tool))
}

func TestToolRegistry_ListSortedByName(t *testing.T) {
	tools := NewToolRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, tools.Register(Tool{Name: name, Handler: func(ctx context.Context, a json.RawMessage) (interface{}, error) { return nil, nil }}))
	}
	list := tools.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}
