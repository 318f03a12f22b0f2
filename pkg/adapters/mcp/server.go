// Package mcp exposes a Plug as Model Context Protocol tools so another
// process (an agent or a remote console) can act as the responder.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/promptplug"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Coordinator is the subset of *plug.Plug exposed as tools.
type Coordinator interface {
	Snapshot(now time.Time) (*plug.Snapshot, error)
	Respond(ctx context.Context, id, raw string) (bool, error)
	LastResponse(ctx context.Context) (ports.Record, bool)
}

var _ Coordinator = (*plug.Plug)(nil)

// PromptResponse is the structured output of get_prompt.
type PromptResponse struct {
	Active bool           `json:"active" jsonschema_description:"Whether a prompt is waiting for an answer"`
	ID     string         `json:"id,omitempty" jsonschema_description:"Prompt id to pass to respond_prompt"`
	Inputs []string       `json:"inputs,omitempty" jsonschema_description:"Input ids the response must contain"`
	Tree   map[string]any `json:"element,omitempty" jsonschema_description:"Serialized element tree"`
}

// RespondResponse is the structured output of respond_prompt.
type RespondResponse struct {
	Accepted bool `json:"accepted" jsonschema_description:"False when the id did not match the active prompt"`
}

// Server wraps a Coordinator and exposes it as an MCP Server.
type Server struct {
	plug      Coordinator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(p Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		plug:      p,
		logger:    logger,
		mcpServer: server.NewMCPServer("plugd-mcp", strings.TrimSpace(promptplug.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP endpoints over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	getTool := mcp.NewTool("get_prompt",
		mcp.WithDescription("Return the prompt currently waiting for an operator, if any."),
		mcp.WithOutputSchema[PromptResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetPrompt))

	respondTool := mcp.NewTool("respond_prompt",
		mcp.WithDescription("Answer the active prompt. Pass either answer (single input) or response (JSON object keyed by input id)."),
		mcp.WithString("prompt_id", mcp.Required(), mcp.Description("Id returned by get_prompt")),
		mcp.WithString("answer", mcp.Description("Plain answer for a prompt with a single default input")),
		mcp.WithString("response", mcp.Description("JSON object mapping input ids to values")),
		mcp.WithOutputSchema[RespondResponse](),
	)
	s.mcpServer.AddTool(respondTool, mcp.NewStructuredToolHandler(s.handleRespond))
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PromptResponse, error) {
	snap, err := s.plug.Snapshot(time.Now())
	if err != nil {
		return PromptResponse{}, fmt.Errorf("snapshot failed: %w", err)
	}
	if snap == nil {
		return PromptResponse{}, nil
	}

	out := PromptResponse{Active: true, ID: snap.ID, Tree: snap.Element}
	if se, err := ui.Decode(snap.Element); err == nil {
		out.Inputs = ui.Inputs(se)
	}
	return out, nil
}

func (s *Server) handleRespond(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RespondResponse, error) {
	id, _ := args["prompt_id"].(string)
	if id == "" {
		return RespondResponse{}, errors.New("prompt_id is required")
	}

	raw, _ := args["response"].(string)
	if raw == "" {
		answer, ok := args["answer"].(string)
		if !ok {
			return RespondResponse{}, errors.New("either answer or response is required")
		}
		encoded, err := response.Encode(map[string]string{response.DefaultKey: answer})
		if err != nil {
			return RespondResponse{}, err
		}
		raw = encoded
	}

	clean, err := response.Sanitize(raw)
	if err != nil {
		s.logger.Warn("MCP respond: payload rejected", "error", err, "size", len(raw))
		return RespondResponse{}, fmt.Errorf("response rejected: %w", err)
	}

	ok, err := s.plug.Respond(ctx, id, clean)
	if err != nil {
		return RespondResponse{}, fmt.Errorf("respond failed: %w", err)
	}
	return RespondResponse{Accepted: ok}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("plugd://responses/last", "Last accepted response",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rec, ok := s.plug.LastResponse(ctx)
		if !ok {
			return nil, ports.ErrNoRecord
		}
		jsonBytes, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "plugd://responses/last",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
