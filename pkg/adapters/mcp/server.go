// Package mcp exposes the pacer engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/internal/presentation/graph"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/aretw0/pacer/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NotificationMethod is the MCP notification sent for every pattern-selected event.
const NotificationMethod = "notifications/" + domain.EventPatternSelected

// StatusResponse aligns with the HTTP Status schema so every adapter reports the same shape.
type StatusResponse struct {
	ActivePattern  string `json:"active_pattern" jsonschema_description:"Name of the selected pattern, empty when none"`
	RunID          string `json:"run_id,omitempty" jsonschema_description:"Identifier of the current run"`
	State          string `json:"state" jsonschema_description:"idle, running, completed or cancelled"`
	StepIndex      int    `json:"step_index" jsonschema_description:"Index of the last applied step, -1 before the first"`
	ConfigRevision uint64 `json:"config_revision" jsonschema_description:"Increments on every installed pattern set"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("pacer-mcp", strings.TrimSpace(pacer.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	go s.Forward(ctx)
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go s.Forward(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// Forward relays pattern-selected events to every connected client until ctx is done.
func (s *Server) Forward(ctx context.Context) {
	sub := s.engine.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			s.mcpServer.SendNotificationToAllClients(NotificationMethod, map[string]any{
				"name":      evt.Name,
				"run_id":    evt.RunID,
				"timestamp": evt.Timestamp.Format(time.RFC3339Nano),
			})
		}
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_config",
		mcp.WithDescription("Return the installed pattern set as a canonical document."),
		mcp.WithString("format", mcp.Description("json (default) or yaml"), mcp.Enum("json", "yaml")),
	), s.handleGetConfig)

	s.mcpServer.AddTool(mcp.NewTool("set_active_pattern",
		mcp.WithDescription("Stop the current run and start the named pattern from its first step."),
		mcp.WithString("pattern_name", mcp.Required(), mcp.Description("Name of a configured pattern")),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetActivePattern))

	s.mcpServer.AddTool(mcp.NewTool("clear_active_pattern",
		mcp.WithDescription("Stop the current run and leave no pattern selected."),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleClearActivePattern))

	s.mcpServer.AddTool(mcp.NewTool("save_config",
		mcp.WithDescription("Validate, persist and install a new pattern document (JSON or YAML)."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The full pattern document")),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleSaveConfig))

	s.mcpServer.AddTool(mcp.NewTool("reload_config",
		mcp.WithDescription("Re-read the persisted document and install it."),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleReloadConfig))

	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Report the active pattern and the progress of its run."),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetStatus))

	s.mcpServer.AddTool(mcp.NewTool("get_diagram",
		mcp.WithDescription("Render a pattern's trajectory as a Mermaid flowchart. The active run's progress is highlighted."),
		mcp.WithString("pattern_name", mcp.Description("Pattern to draw (default: the active pattern)")),
	), s.handleGetDiagram)
}

func (s *Server) handleGetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", "json")
	data, err := schema.Encode(s.engine.GetConfig(), schema.ParseFormat(format))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSetActivePattern(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StatusResponse, error) {
	name, _ := args["pattern_name"].(string)
	if err := s.engine.SetActivePattern(ctx, name); err != nil {
		return StatusResponse{}, fmt.Errorf("set_active_pattern failed: %w", err)
	}
	return s.status(), nil
}

func (s *Server) handleClearActivePattern(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StatusResponse, error) {
	if err := s.engine.ClearActivePattern(ctx); err != nil {
		return StatusResponse{}, fmt.Errorf("clear_active_pattern failed: %w", err)
	}
	return s.status(), nil
}

func (s *Server) handleSaveConfig(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StatusResponse, error) {
	doc, _ := args["document"].(string)
	if err := s.engine.SaveConfigBytes(ctx, []byte(doc)); err != nil {
		s.logger.Warn("MCP save_config rejected", "err", err)
		return StatusResponse{}, fmt.Errorf("save_config failed: %w", err)
	}
	return s.status(), nil
}

func (s *Server) handleReloadConfig(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StatusResponse, error) {
	if err := s.engine.ReloadConfig(ctx); err != nil {
		return StatusResponse{}, fmt.Errorf("reload_config failed: %w", err)
	}
	return s.status(), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StatusResponse, error) {
	return s.status(), nil
}

func (s *Server) handleGetDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.engine.Status()
	name := request.GetString("pattern_name", st.ActivePattern)
	if name == "" {
		return mcp.NewToolResultError("no pattern selected and no pattern_name given"), nil
	}

	set := s.engine.GetConfig()
	p, ok := set.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %q", domain.ErrPatternNotFound, name)), nil
	}

	var overlay *graph.Overlay
	if name == st.ActivePattern {
		overlay = &graph.Overlay{CurrentStep: st.StepIndex}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(p, set.Sensitivity, overlay)), nil
}

func (s *Server) status() StatusResponse {
	st := s.engine.Status()
	return StatusResponse{
		ActivePattern:  st.ActivePattern,
		RunID:          st.RunID,
		State:          string(st.State),
		StepIndex:      st.StepIndex,
		ConfigRevision: st.ConfigRevision,
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("pacer://config", "Installed Pattern Set",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := schema.Encode(s.engine.GetConfig(), schema.FormatJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "pacer://config",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource("pacer://status", "Active Execution",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.status())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "pacer://status",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
