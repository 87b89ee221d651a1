// Package gateway is the boundary between the catalog core and the chat
// platform. The core only ever talks to the Sink and Resolver interfaces;
// payload building turns catalog data into platform-agnostic messages.
package gateway

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/Rocketstradingco/RTCObott/internal/catalog"
)

// Embed is the display payload for a single rich message.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Image       string `json:"image,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

// Component describes one interactive control attached to a message.
// ID is the custom identifier echoed back on interaction.
type Component struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Style string `json:"style,omitempty"`
	Row   int    `json:"row,omitempty"`
}

// Message is the unit a sink can create or edit.
type Message struct {
	Content    string      `json:"content,omitempty"`
	Embed      *Embed      `json:"embed,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// Sink can create and edit messages in one channel.
type Sink interface {
	CreateMessage(ctx context.Context, m Message) (messageID string, err error)
	EditMessage(ctx context.Context, messageID string, m Message) error
}

// Resolver maps a configured channel id to a sink. It returns nil when the
// channel is unconfigured or unreachable; callers treat nil as "nowhere to
// publish" and no-op.
type Resolver interface {
	Resolve(channelID string) Sink
}

// CategoryEmbed builds the embed shown when a category is opened or
// registered. The embed config overrides the category name when a title is
// set, matching how the console's embed builder customizes every category.
func CategoryEmbed(cat *catalog.Category, cfg catalog.Embed) *Embed {
	title := cfg.Title
	if title == "" {
		title = cat.Name
	}
	e := &Embed{
		Title:       title,
		Description: cfg.Description,
		Color:       cfg.Color,
		Footer:      cfg.Footer,
	}
	e.Thumbnail = displayURL(cfg.Thumbnail, "thumbnail")
	e.Image = displayURL(cfg.Image, "image")
	return e
}

// CardEmbed builds the card-detail embed showing one face.
func CardEmbed(card *catalog.Card, face string) *Embed {
	ref := card.Front
	if face == "back" {
		ref = card.Back
	}
	return &Embed{
		Title: card.Name,
		Image: displayURL(ref, "card face"),
	}
}

// displayURL passes an http/https media reference through verbatim.
// Malformed references are logged and omitted from the payload; they are
// never fatal. Relative upload paths (the console's local storage) are
// kept as-is for the presentation layer to resolve.
func displayURL(ref, kind string) string {
	if ref == "" {
		return ""
	}
	if ref[0] == '/' {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		slog.Warn("dropping malformed media reference", "kind", kind, "ref", ref)
		return ""
	}
	return ref
}
