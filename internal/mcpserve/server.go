// Package mcpserve exposes the capability registry as an MCP server over
// stdio, one JSON-RPC message per line.
package mcpserve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// Server answers MCP requests against a registry.
type Server struct {
	registry *capability.Registry
	env      capability.Env
	name     string
	version  string
	log      *logging.Logger

	mu  sync.Mutex // serialises writes
	out io.Writer
}

// Options configures a Server.
type Options struct {
	Registry *capability.Registry
	Env      capability.Env // caller identity threaded into every tool call
	Name     string
	Version  string
	Log      *logging.Logger
}

// New creates a server.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	name := opts.Name
	if name == "" {
		name = "aegis"
	}
	return &Server{
		registry: opts.Registry,
		env:      opts.Env,
		name:     name,
		version:  opts.Version,
		log:      log.Sub("mcp"),
	}
}

// Serve reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s.log.Info().Int("tools", s.registry.Len()).Msg("listening for requests on stdin")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handle(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	s.log.Info().Msg("input closed, shutting down")
	return nil
}

func (s *Server) handle(ctx context.Context, line []byte) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn().Err(err).Msg("parse error")
		s.sendError(nil, codeParseError, "Parse error", err.Error())
		return
	}
	s.log.Debug().Str("method", req.Method).Msg("handling request")

	switch req.Method {
	case "initialize":
		s.send(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    capabilities{Tools: map[string]any{}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		})
	case "tools/list":
		s.send(req.ID, listToolsResult{Tools: s.tools()})
	case "tools/call":
		s.handleCall(ctx, req)
	case "notifications/initialized":
		// notification, no reply
	case "ping":
		s.send(req.ID, map[string]any{})
	default:
		s.log.Warn().Str("method", req.Method).Msg("unknown method")
		s.sendError(req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) tools() []Tool {
	entries := s.registry.Entries()
	out := make([]Tool, 0, len(entries))
	for _, e := range entries {
		desc := e.Description
		if e.Signature != "" {
			desc = fmt.Sprintf("%s. Arguments: %s", e.Description, e.Signature)
		}
		out = append(out, Tool{
			Name:        e.Name,
			Description: desc,
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"args": {Type: "string", Description: "comma-separated arguments: " + e.Signature},
				},
			},
		})
	}
	return out
}

func (s *Server) handleCall(ctx context.Context, req request) {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	raw, _ := params.Arguments["args"].(string)

	out, err := s.registry.Invoke(ctx, params.Name, raw, s.env)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Msg("tool call failed")
		s.send(req.ID, textResult(err.Error(), true))
		return
	}
	s.send(req.ID, textResult(out, false))
}

func (s *Server) send(id, result any) {
	s.write(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id any, code int, message string, data any) {
	s.write(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}})
}

func (s *Server) write(resp response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal response")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%s\n", b); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}
