package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

func TestCodec_ReadMessage_SkipsBlankLines(t *testing.T) {
	r := strings.NewReader("\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n\n")
	c := NewCodec(r)

	msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "ping")
}

func TestServer_Serve_EchoesResponses(t *testing.T) {
	tools := mcp.NewToolRegistry()
	resources := mcp.NewResourceRegistry()
	d := mcp.NewDispatcher(tools, resources, mcp.ServerInfo{Name: "contextframe-mcp", Version: "test"}, nil)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	s := NewServer(d, in, &out, nil)
	err := s.Serve(context.Background())
	require.NoError(t, err)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, "2.0", resp["jsonrpc"])
}
