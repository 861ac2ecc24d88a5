// Package openapi generates the OpenAPI 3.1 document for the Catwalk admin
// API, served at /openapi.json for API explorers and client generators.
package openapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// route is one documented endpoint.
type route struct {
	method     string
	path       string
	tag        string
	summary    string
	authed     bool
	superAdmin bool
}

var routes = []route{
	{http.MethodPost, "/api/auth/login/", "auth", "Authenticate and receive a token pair", false, false},
	{http.MethodPost, "/api/auth/logout/", "auth", "Close the current session and revoke its refresh token", true, false},
	{http.MethodPost, "/api/auth/refresh-token/", "auth", "Exchange a refresh token for a new access token", true, false},
	{http.MethodGet, "/api/auth/profile/", "auth", "Get the authenticated admin's profile", true, false},
	{http.MethodPut, "/api/auth/profile/update/", "auth", "Update the authenticated admin's profile", true, false},
	{http.MethodPost, "/api/auth/change-password/", "auth", "Change password and invalidate outstanding tokens", true, false},
	{http.MethodGet, "/api/auth/sessions/", "auth", "List the admin's active sessions", true, false},
	{http.MethodPost, "/api/auth/sessions/{id}/terminate/", "auth", "Terminate one of the admin's sessions", true, false},
	{http.MethodGet, "/api/auth/login-attempts/", "auth", "List recent login attempts", true, true},

	{http.MethodGet, "/api/templates/", "templates", "List prompt templates", true, false},
	{http.MethodPost, "/api/templates/create/", "templates", "Create a prompt template", true, false},
	{http.MethodGet, "/api/templates/{id}/", "templates", "Get a prompt template", true, false},
	{http.MethodPut, "/api/templates/{id}/update/", "templates", "Update a prompt template", true, false},
	{http.MethodPost, "/api/templates/{id}/delete/", "templates", "Delete a prompt template", true, false},

	{http.MethodGet, "/api/users/", "users", "List app users", true, false},
	{http.MethodGet, "/api/users/{uid}/", "users", "Get an app user with activity", true, false},
	{http.MethodPost, "/api/users/{uid}/disable/", "users", "Disable an app user", true, false},
	{http.MethodPost, "/api/users/{uid}/enable/", "users", "Enable an app user", true, false},
	{http.MethodPost, "/api/users/{uid}/delete/", "users", "Permanently delete an app user", true, true},
	{http.MethodGet, "/api/users/analytics/overview/", "users", "User analytics overview", true, false},

	{http.MethodGet, "/api/dashboard/overview/", "dashboard", "Dashboard headline numbers", true, false},
	{http.MethodGet, "/api/dashboard/login-trends/", "dashboard", "Login trend series", true, false},
	{http.MethodGet, "/api/dashboard/voting-engagement/", "dashboard", "Voting engagement series", true, false},
	{http.MethodGet, "/api/dashboard/subscription-trends/", "dashboard", "Subscription trend series", true, false},
	{http.MethodGet, "/api/dashboard/recent-activity/", "dashboard", "Recent notable events", true, false},
	{http.MethodGet, "/api/dashboard/performance-metrics/", "dashboard", "Service health figures", true, false},

	{http.MethodGet, "/api/analytics/closet/", "analytics", "Closet feature usage", true, false},
	{http.MethodGet, "/api/analytics/polls/", "analytics", "Poll participation figures", true, false},
	{http.MethodGet, "/api/analytics/top-outfits/", "analytics", "Top voted outfits", true, false},
	{http.MethodGet, "/api/analytics/ad-revenue/", "analytics", "Ad revenue figures", true, false},
	{http.MethodGet, "/api/analytics/user-engagement/", "analytics", "Session and retention figures", true, false},

	{http.MethodGet, "/api/content/flagged/", "content", "List flagged content", true, false},
	{http.MethodGet, "/api/content/{id}/details/", "content", "Get content with author info", true, false},
	{http.MethodPost, "/api/content/{id}/approve/", "content", "Approve flagged content", true, false},
	{http.MethodPost, "/api/content/{id}/remove/", "content", "Remove content", true, false},

	{http.MethodGet, "/api/subscriptions/", "subscriptions", "List subscriptions", true, false},
	{http.MethodGet, "/api/subscriptions/pricing/", "subscriptions", "Get plan pricing", true, false},
	{http.MethodPut, "/api/subscriptions/pricing/", "subscriptions", "Update plan pricing", true, false},
	{http.MethodGet, "/api/subscriptions/analytics/", "subscriptions", "Subscription revenue analytics", true, false},

	{http.MethodPost, "/api/notifications/send/", "notifications", "Send or schedule a push notification", true, false},
	{http.MethodGet, "/api/notifications/history/", "notifications", "Notification dispatch history", true, false},
	{http.MethodGet, "/api/notifications/templates/", "notifications", "Notification template catalogue", true, false},

	{http.MethodGet, "/api/settings/feature-flags/", "settings", "Get feature flags", true, false},
	{http.MethodPut, "/api/settings/feature-flags/", "settings", "Update a feature flag", true, false},
	{http.MethodGet, "/api/settings/thresholds/", "settings", "Get thresholds", true, false},
	{http.MethodPut, "/api/settings/thresholds/", "settings", "Update a threshold", true, false},
	{http.MethodGet, "/api/settings/status/", "settings", "System status report", true, false},
	{http.MethodPost, "/api/settings/backup/", "settings", "Trigger a backup", true, true},
}

// GenerateSpec builds the OpenAPI document for the admin API.
func GenerateSpec(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Catwalk Admin API",
			Description: "Admin backend for the Catwalk fashion voting app.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Components.Schemas["Envelope"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
			},
		},
	}
	doc.Components.Schemas["ErrorEnvelope"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"error":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"errors":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()
	for _, rt := range routes {
		addRoute(doc, rt)
	}

	return doc
}

func addRoute(doc *openapi3.T, rt route) {
	op := openapi3.NewOperation()
	op.Summary = rt.summary
	if rt.superAdmin {
		op.Summary += " (super admin only)"
	}
	op.Tags = []string{rt.tag}
	op.Responses = openapi3.NewResponses()

	okDesc := "Success envelope"
	op.Responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &okDesc,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/Envelope"},
				},
			},
		},
	})
	errDesc := "Failure envelope"
	op.Responses.Set("default", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &errDesc,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/ErrorEnvelope"},
				},
			},
		},
	})

	if rt.authed {
		op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}

	for _, name := range pathParams(rt.path) {
		param := openapi3.NewPathParameter(name)
		param.Schema = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}

	item := doc.Paths.Value(rt.path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(rt.path, item)
	}
	item.SetOperation(rt.method, op)
}

// pathParams extracts {name} segments from a path template.
func pathParams(path string) []string {
	var params []string
	for i := 0; i < len(path); i++ {
		if path[i] == '{' {
			j := i + 1
			for j < len(path) && path[j] != '}' {
				j++
			}
			if j < len(path) {
				params = append(params, path[i+1:j])
				i = j
			}
		}
	}
	return params
}
