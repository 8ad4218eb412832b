package openapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI 3.1 document for the sheetdrop API. The route
// set is fixed, so the document is assembled once at startup.
func Generate(version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "sheetdrop API",
			Description: "Spreadsheet upload backend with role-gated admin approval.",
			Version:     version,
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":             &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"requiresApproval": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
						},
					},
				},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()

	addPath(doc, "/api/auth/register", http.MethodPost, "Register a new account", false)
	addPath(doc, "/api/auth/login", http.MethodPost, "Authenticate and receive a bearer token", false)
	addPath(doc, "/api/auth/me", http.MethodGet, "Current account", true)
	addPath(doc, "/api/auth/pending-users", http.MethodGet, "Pending admin elevation requests (admin only)", true)
	addPath(doc, "/api/auth/approve-user/{id}", http.MethodPut, "Approve or reject an admin request (admin only)", true)
	addPath(doc, "/api/auth/users", http.MethodGet, "All approved accounts (admin only)", true)
	addPath(doc, "/api/sheets/upload", http.MethodPost, "Upload a spreadsheet file", true)
	addPath(doc, "/api/sheets/files", http.MethodGet, "List own uploads", true)
	addPath(doc, "/api/sheets/files/{id}", http.MethodGet, "Fetch one upload", true)
	addPath(doc, "/api/sheets/files/{id}", http.MethodDelete, "Delete one upload", true)
	addPath(doc, "/healthz", http.MethodGet, "Liveness probe", false)
	addPath(doc, "/readyz", http.MethodGet, "Readiness probe", false)

	return doc
}

func addPath(doc *openapi3.T, path, method, summary string, secured bool) {
	op := openapi3.NewOperation()
	op.Summary = summary
	op.Responses = openapi3.NewResponses()
	if secured {
		op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}

	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

// Handler serves the generated document as JSON.
func Handler(version string) http.HandlerFunc {
	doc := Generate(version)
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := doc.MarshalJSON()
		if err != nil {
			http.Error(w, "failed to render spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
