package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/profile"
	"github.com/hpungsan/roadmap/internal/prompt"
	"github.com/hpungsan/roadmap/internal/roadmap"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	services *roadmap.Services
	cfg      *config.Config
	log      *logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(services *roadmap.Services, cfg *config.Config, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{services: services, cfg: cfg, log: log.With("component", "mcp")}
}

// Request types for each tool

// ProfileRequest represents the arguments for roadmap_prompt and roadmap_generate.
type ProfileRequest struct {
	Variant string `json:"variant,omitempty" jsonschema:"enum=jee,enum=percentile,enum=swot,description=Prompt template; defaults to the configured variant"`
	profile.PreparationProfile
}

// RegenerateRequest represents the arguments for roadmap_regenerate.
type RegenerateRequest struct {
	Roadmap  string `json:"roadmap" jsonschema:"required,description=The roadmap to revise"`
	Feedback string `json:"feedback" jsonschema:"required,description=Changes requested by the parent or teacher"`
	Variant  string `json:"variant,omitempty" jsonschema:"enum=jee,enum=percentile,enum=swot,description=Selects the model; defaults to the configured variant"`
}

// Response types

// PromptResponse is returned by roadmap_prompt.
type PromptResponse struct {
	Variant string `json:"variant"`
	Prompt  string `json:"prompt"`
}

// RoadmapResponse is returned by roadmap_generate and roadmap_regenerate.
type RoadmapResponse struct {
	Variant string `json:"variant"`
	Roadmap string `json:"roadmap"`
}

// variant resolves a request's variant against the configured default.
func (h *Handlers) variant(name string) (prompt.Variant, error) {
	if name == "" {
		name = h.cfg.Variant
	}
	return prompt.ParseVariant(name)
}

// decodeProfile decodes a ProfileRequest, filling omitted profile fields with defaults.
func (h *Handlers) decodeProfile(req mcp.CallToolRequest) (prompt.Variant, profile.PreparationProfile, error) {
	in, err := decodeOnto(req, ProfileRequest{PreparationProfile: profile.Default()})
	if err != nil {
		return "", in.PreparationProfile, errors.NewInvalidRequest(err.Error())
	}
	v, err := h.variant(in.Variant)
	if err != nil {
		return "", in.PreparationProfile, err
	}
	if err := in.PreparationProfile.Validate(); err != nil {
		return "", in.PreparationProfile, err
	}
	return v, in.PreparationProfile, nil
}

// HandlePrompt handles the roadmap_prompt tool.
func (h *Handlers) HandlePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, p, err := h.decodeProfile(req)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(PromptResponse{Variant: v.String(), Prompt: prompt.Build(v, p)})
}

// HandleGenerate handles the roadmap_generate tool.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, p, err := h.decodeProfile(req)
	if err != nil {
		return errorResult(err), nil
	}

	svc, err := h.services.For(v)
	if err != nil {
		return h.fail("roadmap_generate", err), nil
	}
	text, err := svc.Draft(ctx, p)
	if err != nil {
		return h.fail("roadmap_generate", err), nil
	}
	return successResult(RoadmapResponse{Variant: v.String(), Roadmap: text})
}

// HandleRegenerate handles the roadmap_regenerate tool.
func (h *Handlers) HandleRegenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[RegenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	v, err := h.variant(in.Variant)
	if err != nil {
		return errorResult(err), nil
	}

	svc, err := h.services.For(v)
	if err != nil {
		return h.fail("roadmap_regenerate", err), nil
	}
	text, err := svc.Revise(ctx, in.Roadmap, in.Feedback)
	if err != nil {
		return h.fail("roadmap_regenerate", err), nil
	}
	return successResult(RoadmapResponse{Variant: v.String(), Roadmap: text})
}

// fail logs the underlying cause and returns the user-facing error result.
func (h *Handlers) fail(tool string, err error) *mcp.CallToolResult {
	rErr := errors.As(err)
	if cause := rErr.Unwrap(); cause != nil {
		h.log.Warn("tool failed", "tool", tool, "code", string(rErr.Code), "error", cause)
	}
	return errorResult(err)
}

// errorResult converts an error to an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr := errors.As(err); rErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		if rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		// Internal errors may carry paths or driver messages
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult converts data to an MCP success result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
