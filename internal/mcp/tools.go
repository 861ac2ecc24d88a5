package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/catwalkhq/catwalk/internal/model"
)

const maxAttemptLimit = 100

// registerTools registers all Catwalk MCP tools on the given server. Every
// tool is read-only; mutations go through the HTTP API where they are tied
// to an authenticated admin.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Prompt templates -----

	srv.AddTool(
		mcp.NewTool("catwalk_list_templates",
			mcp.WithDescription(
				"List AI prompt templates used by the outfit recommendation flow. "+
					"Templates can be filtered by category and searched by title or text. "+
					"Valid categories: occasion, weather, mood, style, color, season.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("category",
				mcp.Description("Filter by template category. Omit for all categories."),
			),
			mcp.WithString("search",
				mcp.Description("Substring match against template title and text."),
			),
		),
		s.handleListTemplates,
	)

	srv.AddTool(
		mcp.NewTool("catwalk_get_template",
			mcp.WithDescription(
				"Get a single prompt template by ID, including its full text, "+
					"category, usage count, and the admin who created it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric ID of the template"),
			),
		),
		s.handleGetTemplate,
	)

	// ----- Dashboard statistics -----

	srv.AddTool(
		mcp.NewTool("catwalk_dashboard_overview",
			mcp.WithDescription(
				"Get the top-level dashboard figures: user counts (total, active, "+
					"premium, new this week), engagement counts (posts, votes, polls), "+
					"and revenue totals. Fetched live from the app directory.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleDashboardOverview,
	)

	// ----- Moderation -----

	srv.AddTool(
		mcp.NewTool("catwalk_flagged_content",
			mcp.WithDescription(
				"List content items currently flagged for moderation review, "+
					"including the flag reason and flag count for each item.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleFlaggedContent,
	)

	// ----- Audit -----

	srv.AddTool(
		mcp.NewTool("catwalk_login_attempts",
			mcp.WithDescription(
				"List recent admin login attempts from the audit log, newest first. "+
					"Each entry records the username, source IP, user agent, and "+
					"whether the attempt succeeded.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of attempts to return (default 25, max 100)"),
			),
		),
		s.handleLoginAttempts,
	)

	srv.AddTool(
		mcp.NewTool("catwalk_list_admins",
			mcp.WithDescription(
				"List all admin accounts with their active status, super-admin "+
					"flag, and last login time. Password hashes are never included.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListAdmins,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// handleListTemplates returns prompt templates matching the optional filters.
func (s *MCPServer) handleListTemplates(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	category := optionalString(request, "category")
	if category != "" && !model.ValidTemplateCategory(category) {
		return toolError("Invalid category %q. Valid categories: %v",
			category, model.TemplateCategories)
	}

	templates, err := s.store.ListTemplates(ctx, category, optionalString(request, "search"))
	if err != nil {
		return toolError("Failed to list templates: %v", err)
	}

	return successJSON(templates)
}

// handleGetTemplate returns one prompt template by ID.
func (s *MCPServer) handleGetTemplate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireInt(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	tpl, err := s.store.GetTemplate(ctx, int64(id))
	if err != nil {
		return toolError("Template %d not found", id)
	}

	return successJSON(tpl)
}

// handleDashboardOverview aggregates the three directory stat endpoints.
func (s *MCPServer) handleDashboardOverview(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	users, err := s.dir.UserCounts(ctx)
	if err != nil {
		return toolError("Failed to load user counts: %v", err)
	}
	engagement, err := s.dir.EngagementCounts(ctx)
	if err != nil {
		return toolError("Failed to load engagement counts: %v", err)
	}
	revenue, err := s.dir.RevenueTotals(ctx)
	if err != nil {
		return toolError("Failed to load revenue totals: %v", err)
	}

	return successJSON(map[string]interface{}{
		"users":      users,
		"engagement": engagement,
		"revenue":    revenue,
	})
}

// handleFlaggedContent returns the moderation queue.
func (s *MCPServer) handleFlaggedContent(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	content, err := s.dir.FlaggedContent(ctx)
	if err != nil {
		return toolError("Failed to list flagged content: %v", err)
	}

	return successJSON(content)
}

// handleLoginAttempts returns the admin login audit log.
func (s *MCPServer) handleLoginAttempts(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	limit := clamp(optionalInt(request, "limit", 25), 1, maxAttemptLimit)

	attempts, err := s.store.ListLoginAttempts(ctx, limit)
	if err != nil {
		return toolError("Failed to list login attempts: %v", err)
	}

	return successJSON(attempts)
}

// handleListAdmins returns all admin accounts. The password hash is excluded
// by the model's JSON tags.
func (s *MCPServer) handleListAdmins(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return toolError("Failed to list admins: %v", err)
	}

	return successJSON(admins)
}
