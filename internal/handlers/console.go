package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Rocketstradingco/RTCObott/internal/cache"
	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/claims"
	"github.com/Rocketstradingco/RTCObott/internal/render"
	"github.com/Rocketstradingco/RTCObott/internal/storage"
)

// maxUploadBytes caps a single batch-add request body.
const maxUploadBytes = 50 << 20

var errCategoryNotFound = errors.New("category not found")

// Console groups the authenticated catalog-management handlers plus the
// public claims page.
type Console struct {
	renderer *render.Renderer
	store    *catalog.Store
	uploads  storage.Storage
	pages    *cache.PageCache
}

// NewConsole creates the Console handler group. pages may be nil, which
// disables claims-page caching.
func NewConsole(renderer *render.Renderer, store *catalog.Store, uploads storage.Storage, pages *cache.PageCache) *Console {
	return &Console{
		renderer: renderer,
		store:    store,
		uploads:  uploads,
		pages:    pages,
	}
}

// Inventory lists all categories.
func (h *Console) Inventory(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderer.Page(w, r, "inventory", &render.PageData{
		Title:   "Inventory",
		Section: "inventory",
		Data:    map[string]any{"Categories": c.Categories},
	})
}

// AddCategoryPage renders the new-category form.
func (h *Console) AddCategoryPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Page(w, r, "add_category", &render.PageData{
		Title:   "Add Category",
		Section: "inventory",
	})
}

// AddCategorySubmit creates a category and returns to the inventory.
func (h *Console) AddCategorySubmit(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if err := validateName(name); err != nil {
		h.renderer.Page(w, r, "add_category", &render.PageData{
			Title:   "Add Category",
			Section: "inventory",
			Error:   err.Error(),
		})
		return
	}

	err := h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		c.AddCategory(name)
		return nil
	})
	if err != nil {
		slog.Error("add category failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

// DeleteCategory removes a category and all its cards. Deleting an
// unknown id is a no-op.
func (h *Console) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		c.DeleteCategory(id)
		return nil
	})
	if err != nil {
		slog.Error("delete category failed", "error", err, "category", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.invalidateClaimsPage(r)
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

// CategoryPage shows one category with its cards and the add-card forms.
func (h *Console) CategoryPage(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cat := c.FindCategory(chi.URLParam(r, "id"))
	if cat == nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	h.renderCategory(w, r, cat, "")
}

func (h *Console) renderCategory(w http.ResponseWriter, r *http.Request, cat *catalog.Category, errMsg string) {
	h.renderer.Page(w, r, "category", &render.PageData{
		Title:   cat.Name,
		Section: "inventory",
		Data:    map[string]any{"Category": cat},
		Error:   errMsg,
	})
}

// CategoryAction dispatches the POST forms on the category page. The
// action field selects between add-card, batch-add and delete-card.
func (h *Console) CategoryAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	switch action := r.FormValue("action"); action {
	case "add-card":
		err = h.addCard(r, id)
	case "batch-add":
		err = h.batchAdd(r, id)
	case "delete-card":
		err = h.deleteCard(r, id)
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	switch {
	case err == nil:
		h.invalidateClaimsPage(r)
		http.Redirect(w, r, "/category/"+id, http.StatusSeeOther)
	case errors.Is(err, errCategoryNotFound):
		http.Error(w, "Category not found", http.StatusNotFound)
	default:
		c, loadErr := h.store.Load()
		if loadErr != nil {
			slog.Error("catalog load failed", "error", loadErr)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		cat := c.FindCategory(id)
		if cat == nil {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		h.renderCategory(w, r, cat, err.Error())
	}
}

func (h *Console) addCard(r *http.Request, categoryID string) error {
	name := strings.TrimSpace(r.FormValue("name"))
	front := strings.TrimSpace(r.FormValue("front"))
	back := strings.TrimSpace(r.FormValue("back"))

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateMediaRef(front); err != nil {
		return err
	}
	if err := validateMediaRef(back); err != nil {
		return err
	}

	return h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		if c.FindCategory(categoryID) == nil {
			return errCategoryNotFound
		}
		c.AddCard(categoryID, name, front, back)
		return nil
	})
}

func (h *Console) batchAdd(r *http.Request, categoryID string) error {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return errors.New("upload too large or malformed")
	}

	var names []string
	for _, line := range strings.Split(r.FormValue("names"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	if len(names) == 0 {
		return errors.New("at least one card name is required")
	}
	if len(names) > maxBatchCards {
		return errors.New("too many cards in one batch")
	}
	for _, name := range names {
		if err := validateName(name); err != nil {
			return err
		}
	}

	// Images pair up with names in front/back order. Missing trailing
	// images leave those faces blank.
	files := r.MultipartForm.File["images"]

	type newCard struct {
		name, front, back string
	}
	cards := make([]newCard, 0, len(names))
	for i, name := range names {
		nc := newCard{name: name}

		var err error
		if nc.front, err = h.saveUpload(r, files, 2*i); err != nil {
			return err
		}
		if nc.back, err = h.saveUpload(r, files, 2*i+1); err != nil {
			return err
		}
		cards = append(cards, nc)
	}

	return h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		if c.FindCategory(categoryID) == nil {
			return errCategoryNotFound
		}
		for _, nc := range cards {
			c.AddCard(categoryID, nc.name, nc.front, nc.back)
		}
		return nil
	})
}

// saveUpload stores the idx-th uploaded image and returns its URL, or
// "" when no file was provided at that position.
func (h *Console) saveUpload(r *http.Request, files []*multipart.FileHeader, idx int) (string, error) {
	if idx >= len(files) {
		return "", nil
	}
	f, err := files[idx].Open()
	if err != nil {
		return "", errors.New("could not read uploaded image")
	}
	defer f.Close()

	url, err := h.uploads.Save(r.Context(), files[idx].Filename, f)
	if err != nil {
		slog.Error("upload save failed", "error", err, "filename", files[idx].Filename)
		return "", errors.New("could not store uploaded image")
	}
	return url, nil
}

func (h *Console) deleteCard(r *http.Request, categoryID string) error {
	cardID := r.FormValue("card_id")
	return h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		if c.FindCategory(categoryID) == nil {
			return errCategoryNotFound
		}
		c.DeleteCard(categoryID, cardID)
		return nil
	})
}

// EmbedBuilderPage renders the category embed appearance form.
func (h *Console) EmbedBuilderPage(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderer.Page(w, r, "embed_builder", &render.PageData{
		Title:   "Embed Builder",
		Section: "embed-builder",
		Data:    map[string]any{"Embed": c.Embed},
	})
}

// EmbedBuilderSubmit saves the embed appearance. Blank button label and
// color fall back to the defaults.
func (h *Console) EmbedBuilderSubmit(w http.ResponseWriter, r *http.Request) {
	err := h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		def := catalog.DefaultEmbed()
		c.Embed.Title = strings.TrimSpace(r.FormValue("title"))
		c.Embed.Description = strings.TrimSpace(r.FormValue("description"))
		c.Embed.ButtonLabel = strings.TrimSpace(r.FormValue("button_label"))
		c.Embed.Color = strings.TrimSpace(r.FormValue("color"))
		c.Embed.Thumbnail = strings.TrimSpace(r.FormValue("thumbnail"))
		c.Embed.Image = strings.TrimSpace(r.FormValue("image"))
		c.Embed.Footer = strings.TrimSpace(r.FormValue("footer"))
		if c.Embed.ButtonLabel == "" {
			c.Embed.ButtonLabel = def.ButtonLabel
		}
		if c.Embed.Color == "" {
			c.Embed.Color = def.Color
		}
		return nil
	})
	if err != nil {
		slog.Error("embed save failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/embed-builder", http.StatusSeeOther)
}

// SettingsPage renders the channel and grid settings form.
func (h *Console) SettingsPage(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderer.Page(w, r, "settings", &render.PageData{
		Title:   "Settings",
		Section: "settings",
		Data:    map[string]any{"Settings": c.Settings},
	})
}

// SettingsSubmit saves the channel ids and grid size. An unparseable or
// out-of-range grid size falls back to the default.
func (h *Console) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	err := h.store.Update(r.Context(), func(c *catalog.Catalog) error {
		c.Settings.InventoryChannelID = strings.TrimSpace(r.FormValue("inventory_channel_id"))
		c.Settings.ClaimsChannelID = strings.TrimSpace(r.FormValue("claims_channel_id"))
		c.Settings.ImageChannelID = strings.TrimSpace(r.FormValue("image_channel_id"))

		grid, err := strconv.Atoi(r.FormValue("grid_size"))
		if err != nil || grid < 1 || grid > 5 {
			grid = catalog.DefaultSettings().GridSize
		}
		c.Settings.GridSize = grid
		return nil
	})
	if err != nil {
		slog.Error("settings save failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// ClaimsPage serves the public claims summary. The rendered page is
// cached whole in Valkey and invalidated on every catalog mutation.
func (h *Console) ClaimsPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if h.pages != nil {
		if html, ok := h.pages.Get(r.Context(), cache.ClaimsPageKey); ok {
			w.Write(html)
			return
		}
	}

	c, err := h.store.Load()
	if err != nil {
		slog.Error("catalog load failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	html, err := h.renderer.Render("claims", &render.PageData{
		Title: "Claims",
		Data:  map[string]any{"Summary": claims.Render(c)},
	})
	if err != nil {
		slog.Error("claims render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if h.pages != nil {
		h.pages.Set(r.Context(), cache.ClaimsPageKey, html)
	}
	w.Write(html)
}

func (h *Console) invalidateClaimsPage(r *http.Request) {
	if h.pages != nil {
		h.pages.Invalidate(r.Context(), cache.ClaimsPageKey)
	}
}
