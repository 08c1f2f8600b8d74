// Package mcp exposes roadmap generation as stateless MCP tools over stdio.
package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/roadmap"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"roadmap_prompt": {
		def: mcp.NewToolWithRawSchema("roadmap_prompt",
			"Build the roadmap generation prompt for a student profile without calling the model.",
			inputSchema[ProfileRequest]()),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrompt },
	},
	"roadmap_generate": {
		def: mcp.NewToolWithRawSchema("roadmap_generate",
			"Generate a personalised study roadmap from a student's months remaining, marks and syllabus completion.",
			inputSchema[ProfileRequest]()),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
	"roadmap_regenerate": {
		def: mcp.NewToolWithRawSchema("roadmap_regenerate",
			"Revise an existing roadmap according to parent or teacher feedback. Returns the changed roadmap in the same format.",
			inputSchema[RegenerateRequest]()),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRegenerate },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with roadmap tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(services *roadmap.Services, cfg *config.Config, log *logger.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"roadmap",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(services, cfg, log)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(services *roadmap.Services, cfg *config.Config, log *logger.Logger, version string) error {
	s := NewServer(services, cfg, log, version)
	return server.ServeStdio(s)
}
