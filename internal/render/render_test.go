package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
)

func TestNewParsesAllTemplates(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, name := range []string{
		"login", "inventory", "add_category", "category",
		"embed_builder", "settings", "claims", "2fa_setup", "2fa_verify",
	} {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("template %q not parsed", name)
		}
	}
}

func TestRenderClaimsPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	html, err := r.Render("claims", &PageData{
		Title: "Claims",
		Data:  map[string]any{"Summary": "X - alice\nY - bob"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "X - alice") {
		t.Errorf("claims page missing summary: %s", html)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render("nope", nil); err == nil {
		t.Error("unknown template should error")
	}
}

func TestPageRendersInventory(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	c := catalog.Default()
	c.AddCategory("Alpha")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	r.Page(rec, req, "inventory", &PageData{
		Title:   "Inventory",
		Section: "inventory",
		Data:    map[string]any{"Categories": c.Categories},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Alpha") {
		t.Errorf("inventory page missing category: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestPageUnknownTemplateIs500(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	r.Page(rec, httptest.NewRequest(http.MethodGet, "/", nil), "nope", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
