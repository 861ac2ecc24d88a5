package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// catwalk://templates: full prompt template catalogue
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			"catwalk://templates",
			"Prompt Templates",
			mcp.WithResourceDescription(
				"All AI prompt templates in the catalogue, including inactive "+
					"ones, with their category, text, and usage counts.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleTemplatesResource,
	)

	// -------------------------------------------------------------------
	// catwalk://settings/{prefix}: settings by key prefix (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"catwalk://settings/{prefix}",
			"App Settings",
			mcp.WithTemplateDescription(
				"Stored settings grouped by key prefix, e.g. 'feature' for "+
					"feature flags, 'threshold' for moderation thresholds, or "+
					"'plan' for subscription pricing.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSettingsResource,
	)
}

// handleTemplatesResource returns a JSON list of all prompt templates.
func (s *MCPServer) handleTemplatesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	templates, err := s.store.ListTemplates(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	b, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal templates: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "catwalk://templates",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleSettingsResource returns stored settings under a key prefix.
func (s *MCPServer) handleSettingsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	// Extract prefix from URI: "catwalk://settings/{prefix}"
	uri := request.Params.URI
	prefix := strings.TrimPrefix(uri, "catwalk://settings/")
	if prefix == "" || prefix == uri {
		return nil, fmt.Errorf("invalid settings URI %q: expected catwalk://settings/{prefix}", uri)
	}

	settings, err := s.store.ListSettingsByPrefix(ctx, prefix+".")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings for prefix %q: %w", prefix, err)
	}

	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
