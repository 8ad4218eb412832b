package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	doc := Generate("1.2.3")

	if doc.Info.Version != "1.2.3" {
		t.Errorf("version: got %q", doc.Info.Version)
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Error("expected a bearerAuth security scheme")
	}

	for _, path := range []string{
		"/api/auth/register",
		"/api/auth/login",
		"/api/auth/approve-user/{id}",
		"/api/sheets/upload",
		"/healthz",
	} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("missing path %s", path)
		}
	}

	// Protected operations carry the bearer requirement, public ones do not.
	if doc.Paths.Value("/api/auth/me").Get.Security == nil {
		t.Error("/api/auth/me should require auth")
	}
	if doc.Paths.Value("/api/auth/register").Post.Security != nil {
		t.Error("/api/auth/register should be public")
	}

	// Both methods of the shared files path land on one item.
	item := doc.Paths.Value("/api/sheets/files/{id}")
	if item == nil || item.Get == nil || item.Delete == nil {
		t.Error("expected GET and DELETE on /api/sheets/files/{id}")
	}
}

func TestHandlerServesJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler("dev")(rr, httptest.NewRequest("GET", "/openapi.json", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Errorf("openapi field: got %v", doc["openapi"])
	}
}
