package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/render"
	"github.com/Rocketstradingco/RTCObott/internal/storage"
)

// testConsole wires the console handlers onto a bare router without the
// auth and CSRF chain, which is exercised separately.
func testConsole(t *testing.T) (http.Handler, *catalog.Store) {
	t.Helper()

	renderer, err := render.New()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	store := catalog.NewStore(filepath.Join(dir, "inventory.json"))
	c := catalog.Default()
	cat := c.AddCategory("Alpha")
	c.AddCard(cat.ID, "One", "", "")
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}

	uploads := storage.NewLocal(filepath.Join(dir, "uploads"), "/uploads/")
	console := NewConsole(renderer, store, uploads, nil)

	r := chi.NewRouter()
	r.Get("/inventory", console.Inventory)
	r.Post("/add-category", console.AddCategorySubmit)
	r.Post("/delete-category/{id}", console.DeleteCategory)
	r.Get("/category/{id}", console.CategoryPage)
	r.Post("/category/{id}", console.CategoryAction)
	r.Post("/embed-builder", console.EmbedBuilderSubmit)
	r.Post("/settings", console.SettingsSubmit)
	r.Get("/claims", console.ClaimsPage)
	return r, store
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInventoryPage(t *testing.T) {
	h, _ := testConsole(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Alpha") {
		t.Error("inventory missing seeded category")
	}
}

func TestAddCategory(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/add-category", url.Values{"name": {"Beta"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	c, _ := store.Load()
	if c.FindCategory("2") == nil || c.FindCategory("2").Name != "Beta" {
		t.Errorf("category not added: %+v", c.Categories)
	}
}

func TestAddCategoryRejectsEmptyName(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/add-category", url.Values{"name": {"   "}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want re-rendered form", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "name is required") {
		t.Error("validation message missing")
	}

	c, _ := store.Load()
	if len(c.Categories) != 1 {
		t.Errorf("invalid category persisted: %+v", c.Categories)
	}
}

func TestDeleteCategory(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/delete-category/1", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	c, _ := store.Load()
	if c.FindCategory("1") != nil {
		t.Error("category not deleted")
	}
}

func TestCategoryPage(t *testing.T) {
	h, _ := testConsole(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/category/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "One") {
		t.Error("category page missing card")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/category/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing category status = %d, want 404", rec.Code)
	}
}

func TestAddCard(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/category/1", url.Values{
		"action": {"add-card"},
		"name":   {"Two"},
		"front":  {"https://cdn.example/front.png"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	c, _ := store.Load()
	card := c.FindCard("1", "2")
	if card == nil || card.Name != "Two" || card.Front != "https://cdn.example/front.png" {
		t.Errorf("card = %+v", card)
	}
}

func TestAddCardToMissingCategoryIs404(t *testing.T) {
	h, _ := testConsole(t)

	rec := postForm(t, h, "/category/99", url.Values{
		"action": {"add-card"},
		"name":   {"Two"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteCard(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/category/1", url.Values{
		"action":  {"delete-card"},
		"card_id": {"1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	c, _ := store.Load()
	if c.FindCard("1", "1") != nil {
		t.Error("card not deleted")
	}
}

func TestUnknownCategoryActionIs400(t *testing.T) {
	h, _ := testConsole(t)

	rec := postForm(t, h, "/category/1", url.Values{"action": {"frobnicate"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEmbedBuilderSubmit(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/embed-builder", url.Values{
		"title":       {"Series One"},
		"description": {"Pick a card"},
		// Blank label and color fall back to defaults.
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	c, _ := store.Load()
	if c.Embed.Title != "Series One" || c.Embed.Description != "Pick a card" {
		t.Errorf("embed = %+v", c.Embed)
	}
	if c.Embed.ButtonLabel != "Explore" || c.Embed.Color != "#ffffff" {
		t.Errorf("defaults not applied: %+v", c.Embed)
	}
}

func TestSettingsSubmit(t *testing.T) {
	h, store := testConsole(t)

	rec := postForm(t, h, "/settings", url.Values{
		"inventory_channel_id": {"111"},
		"claims_channel_id":    {"222"},
		"grid_size":            {"4"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}

	c, _ := store.Load()
	if c.Settings.InventoryChannelID != "111" || c.Settings.ClaimsChannelID != "222" {
		t.Errorf("settings = %+v", c.Settings)
	}
	if c.Settings.GridSize != 4 {
		t.Errorf("GridSize = %d, want 4", c.Settings.GridSize)
	}
}

func TestSettingsGridSizeFallsBack(t *testing.T) {
	h, store := testConsole(t)

	postForm(t, h, "/settings", url.Values{"grid_size": {"99"}})

	c, _ := store.Load()
	if c.Settings.GridSize != 3 {
		t.Errorf("GridSize = %d, want default 3", c.Settings.GridSize)
	}
}

func TestClaimsPagePublic(t *testing.T) {
	h, store := testConsole(t)

	err := store.Update(t.Context(), func(c *catalog.Catalog) error {
		c.FindCard("1", "1").ClaimedBy = "alice"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "One - alice") {
		t.Errorf("claims page = %s", rec.Body.String())
	}
}
