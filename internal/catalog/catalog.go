// Package catalog defines the shared card catalog document and the
// operations that mutate it. The catalog is a single JSON document on disk
// holding every category, card, claim, and the presentation settings used
// by both the web console and the chat-facing controller.
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Card is a claimable item with two media faces. ClaimedBy is empty while
// the card is unclaimed; otherwise it holds the claimant's identity token.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Front     string `json:"front"`
	Back      string `json:"back"`
	ClaimedBy string `json:"claimed_by"`
}

// Claimed reports whether the card currently has an owner.
func (c *Card) Claimed() bool {
	return c.ClaimedBy != ""
}

// Category is a named, ordered group of cards. MessageID references the
// chat message the category embed was last posted as, if any.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MessageID string `json:"message_id,omitempty"`
	Cards     []Card `json:"cards"`
}

// Embed holds the presentation metadata for category embeds. The catalog
// core treats it as opaque; only the gateway payload builder interprets it.
type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ButtonLabel string `json:"button_label"`
	Color       string `json:"color"`
	Thumbnail   string `json:"thumbnail"`
	Image       string `json:"image"`
	Footer      string `json:"footer"`

	extra map[string]json.RawMessage
}

// Settings holds channel bindings and browsing defaults.
type Settings struct {
	InventoryChannelID string `json:"inventory_channel_id"`
	ClaimsChannelID    string `json:"claims_channel_id"`
	ImageChannelID     string `json:"image_channel_id"`
	GridSize           int    `json:"grid_size"`
	ClaimsMessageID    string `json:"claims_message_id"`

	extra map[string]json.RawMessage
}

// Catalog is the root aggregate persisted as one document.
type Catalog struct {
	Categories []Category `json:"categories"`
	Embed      Embed      `json:"embed"`
	Settings   Settings   `json:"settings"`

	extra map[string]json.RawMessage
}

// Default returns a catalog initialized from compiled-in defaults: no
// categories, the stock embed presentation, and a 3x3 browsing grid.
func Default() *Catalog {
	return &Catalog{
		Categories: []Category{},
		Embed:      DefaultEmbed(),
		Settings:   DefaultSettings(),
	}
}

// DefaultEmbed returns the stock embed presentation used when the document
// has never been customized through the embed builder.
func DefaultEmbed() Embed {
	return Embed{
		Description: "Explore cards",
		ButtonLabel: "Explore",
		Color:       "#ffffff",
	}
}

// DefaultSettings returns the stock settings block.
func DefaultSettings() Settings {
	return Settings{GridSize: 3}
}

// AddCategory appends a category named name and returns it. The id is the
// positional count rule the persisted documents were written with:
// len(categories)+1, never reassigned after deletion.
func (c *Catalog) AddCategory(name string) *Category {
	cat := Category{
		ID:    strconv.Itoa(len(c.Categories) + 1),
		Name:  name,
		Cards: []Card{},
	}
	c.Categories = append(c.Categories, cat)
	return &c.Categories[len(c.Categories)-1]
}

// DeleteCategory removes the category with the given id and all of its
// cards. Removing an absent id is a no-op.
func (c *Catalog) DeleteCategory(id string) {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			c.Categories = append(c.Categories[:i], c.Categories[i+1:]...)
			return
		}
	}
}

// AddCard appends an unclaimed card to the category with the given id and
// returns it, or nil when the category does not exist.
func (c *Catalog) AddCard(categoryID, name, front, back string) *Card {
	cat := c.FindCategory(categoryID)
	if cat == nil {
		return nil
	}
	card := Card{
		ID:    strconv.Itoa(len(cat.Cards) + 1),
		Name:  name,
		Front: front,
		Back:  back,
	}
	cat.Cards = append(cat.Cards, card)
	return &cat.Cards[len(cat.Cards)-1]
}

// DeleteCard removes the card with the given id from the category. Absent
// category or card ids are a no-op.
func (c *Catalog) DeleteCard(categoryID, cardID string) {
	cat := c.FindCategory(categoryID)
	if cat == nil {
		return
	}
	for i := range cat.Cards {
		if cat.Cards[i].ID == cardID {
			cat.Cards = append(cat.Cards[:i], cat.Cards[i+1:]...)
			return
		}
	}
}

// FindCategory returns the category with the given id, or nil if not found.
func (c *Catalog) FindCategory(id string) *Category {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i]
		}
	}
	return nil
}

// FindCard returns the card with the given id inside the given category,
// or nil if either is not found.
func (c *Catalog) FindCard(categoryID, cardID string) *Card {
	cat := c.FindCategory(categoryID)
	if cat == nil {
		return nil
	}
	for i := range cat.Cards {
		if cat.Cards[i].ID == cardID {
			return &cat.Cards[i]
		}
	}
	return nil
}

// applyDefaults backfills every expected field that older documents may
// lack. Fields already present keep their value; unknown extra fields are
// carried untouched in the extra maps.
func (c *Catalog) applyDefaults() {
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	de := DefaultEmbed()
	if c.Embed.Description == "" {
		c.Embed.Description = de.Description
	}
	if c.Embed.ButtonLabel == "" {
		c.Embed.ButtonLabel = de.ButtonLabel
	}
	if c.Embed.Color == "" {
		c.Embed.Color = de.Color
	}
	if c.Settings.GridSize <= 0 {
		c.Settings.GridSize = DefaultSettings().GridSize
	}
	for i := range c.Categories {
		if c.Categories[i].Cards == nil {
			c.Categories[i].Cards = []Card{}
		}
	}
}

// The custom JSON round-trip below keeps fields this version does not know
// about, so documents written by newer revisions survive a load/save cycle.

var embedKeys = []string{"title", "description", "button_label", "color", "thumbnail", "image", "footer"}

func (e *Embed) UnmarshalJSON(data []byte) error {
	type plain Embed
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Embed(p)
	extra, err := extraFields(data, embedKeys)
	if err != nil {
		return err
	}
	e.extra = extra
	return nil
}

func (e Embed) MarshalJSON() ([]byte, error) {
	type plain Embed
	return mergeExtra(plain(e), e.extra)
}

var settingsKeys = []string{"inventory_channel_id", "claims_channel_id", "image_channel_id", "grid_size", "claims_message_id"}

func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Settings(p)
	extra, err := extraFields(data, settingsKeys)
	if err != nil {
		return err
	}
	s.extra = extra
	return nil
}

func (s Settings) MarshalJSON() ([]byte, error) {
	type plain Settings
	return mergeExtra(plain(s), s.extra)
}

var catalogKeys = []string{"categories", "embed", "settings"}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	type plain Catalog
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Catalog(p)
	extra, err := extraFields(data, catalogKeys)
	if err != nil {
		return err
	}
	c.extra = extra
	return nil
}

func (c Catalog) MarshalJSON() ([]byte, error) {
	type plain Catalog
	return mergeExtra(plain(c), c.extra)
}

// extraFields returns the raw values of every key in data that is not one
// of the known keys.
func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeExtra marshals v and splices the retained unknown fields back into
// the resulting object.
func mergeExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("merge extra fields: %w", err)
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}
