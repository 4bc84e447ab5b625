package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/pkg/adapters/memory"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{"patterns": {"wave": [{"dx": 1, "dy": 0, "duration": 5000}], "circle": [{"dx": 1, "dy": 1, "duration": 0}]}}`

func newTestServer(t *testing.T) (*Server, *pacer.Engine, *memory.Persister) {
	t.Helper()
	persister := memory.NewPersisterWith([]byte(doc))
	eng, err := pacer.New("", pacer.WithPersister(persister), pacer.WithActuator(memory.NewRecorder()))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return NewServer(eng, nil), eng, persister
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestHandleSetActivePattern(t *testing.T) {
	s, eng, _ := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"pattern_name": "wave"}
	resp, err := s.handleSetActivePattern(ctx, request("set_active_pattern", args), args)
	require.NoError(t, err)
	assert.Equal(t, "wave", resp.ActivePattern)
	assert.Equal(t, "wave", eng.Status().ActivePattern)

	args = map[string]any{"pattern_name": "nope"}
	_, err = s.handleSetActivePattern(ctx, request("set_active_pattern", args), args)
	assert.ErrorIs(t, err, domain.ErrPatternNotFound)
	assert.Equal(t, "wave", eng.Status().ActivePattern)

	resp, err = s.handleClearActivePattern(ctx, request("clear_active_pattern", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "", resp.ActivePattern)
}

func TestHandleSaveAndReloadConfig(t *testing.T) {
	s, eng, persister := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"document": "patterns:\n  tap:\n    - {dx: 0, dy: 0, duration: 0}\n"}
	resp, err := s.handleSaveConfig(ctx, request("save_config", args), args)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), resp.ConfigRevision)
	assert.Equal(t, []string{"tap"}, eng.GetConfig().Names())

	bad := map[string]any{"document": `{"patterns": {"tap": []}}`}
	_, err = s.handleSaveConfig(ctx, request("save_config", bad), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, persister.Saves())

	require.NoError(t, persister.Save(ctx, []byte(doc)))
	_, err = s.handleReloadConfig(ctx, request("reload_config", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"wave", "circle"}, eng.GetConfig().Names())
}

func TestHandleGetConfig(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handleGetConfig(context.Background(), request("get_config", map[string]any{"format": "yaml"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "patterns:")
	assert.Contains(t, text.Text, "circle:")
}

func TestToolsAreListed(t *testing.T) {
	s, _, _ := newTestServer(t)

	msg := json.RawMessage(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)
	out, err := json.Marshal(s.mcpServer.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	for _, name := range []string{"get_config", "set_active_pattern", "clear_active_pattern", "save_config", "reload_config", "get_status", "get_diagram"} {
		assert.Contains(t, string(out), `"`+name+`"`)
	}
}

func TestCallToolOverProtocol(t *testing.T) {
	s, eng, _ := newTestServer(t)

	msg := json.RawMessage(`{"jsonrpc": "2.0", "id": 2, "method": "tools/call", "params": {"name": "set_active_pattern", "arguments": {"pattern_name": "circle"}}}`)
	out, err := json.Marshal(s.mcpServer.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	assert.Contains(t, string(out), `"active_pattern":"circle"`)
	assert.Equal(t, "circle", eng.Status().ActivePattern)
}

func TestHandleGetDiagram(t *testing.T) {
	s, eng, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGetDiagram(ctx, request("get_diagram", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError, "nothing active and no name given")

	require.NoError(t, eng.SetActivePattern(ctx, "wave"))

	res, err = s.handleGetDiagram(ctx, request("get_diagram", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `p0 -- "+1, +0 / 5s" --> p1(["(1, 0)"])`)
	assert.Contains(t, text, "classDef current")

	res, err = s.handleGetDiagram(ctx, request("get_diagram", map[string]any{"pattern_name": "circle"}))
	require.NoError(t, err)
	text = res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `p1(["(1, 1)"])`)
	assert.NotContains(t, text, "classDef")

	res, err = s.handleGetDiagram(ctx, request("get_diagram", map[string]any{"pattern_name": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
