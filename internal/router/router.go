// Package router wires the HTTP routes for the console and the
// interaction controller.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rocketstradingco/RTCObott/internal/config"
	"github.com/Rocketstradingco/RTCObott/internal/handlers"
	"github.com/Rocketstradingco/RTCObott/internal/middleware"
	"github.com/Rocketstradingco/RTCObott/internal/session"
	"github.com/Rocketstradingco/RTCObott/web"
)

// New builds the console router: the login gate, the authenticated
// catalog-management pages and the public claims page.
func New(cfg *config.Config, sessions *session.Store, auth *handlers.Auth, console *handlers.Console) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessions))
	r.Use(middleware.NewCSRF(!cfg.IsDev()))

	// Login attempts are rate limited per client IP.
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/", auth.LoginPage)
	r.With(loginLimiter.Middleware).Post("/", auth.LoginSubmit)
	r.Post("/logout", auth.Logout)

	r.Get("/claims", console.ClaimsPage)
	r.Get("/health", handlers.Health)

	r.Handle("/static/*", http.FileServer(http.FS(web.StaticFS)))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(cfg.UploadDir))))

	// 2FA pages sit behind the password but before the second factor.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin)
		r.Get("/2fa/setup", auth.TwoFASetupPage)
		r.Get("/2fa/verify", auth.TwoFAVerifyPage)
		r.Post("/2fa/verify", auth.TwoFAVerifySubmit)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin)
		r.Use(middleware.Require2FA)

		r.Get("/inventory", console.Inventory)
		r.Get("/add-category", console.AddCategoryPage)
		r.Post("/add-category", console.AddCategorySubmit)
		r.Post("/delete-category/{id}", console.DeleteCategory)
		r.Get("/category/{id}", console.CategoryPage)
		r.Post("/category/{id}", console.CategoryAction)
		r.Get("/embed-builder", console.EmbedBuilderPage)
		r.Post("/embed-builder", console.EmbedBuilderSubmit)
		r.Get("/settings", console.SettingsPage)
		r.Post("/settings", console.SettingsSubmit)
	})

	return r
}

// NewBot builds the interaction controller router.
func NewBot(bot *handlers.Bot) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Post("/interactions", bot.Interactions)
	r.Post("/register", bot.Register)
	r.Get("/health", handlers.Health)

	return r
}
