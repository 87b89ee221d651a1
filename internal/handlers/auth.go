// Package handlers contains the HTTP handlers for the RTCO card console
// and the interaction controller. Handlers are grouped by concern and
// receive their dependencies through the handler struct.
package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rocketstradingco/RTCObott/internal/middleware"
	"github.com/Rocketstradingco/RTCObott/internal/render"
	"github.com/Rocketstradingco/RTCObott/internal/session"
)

// adminActor is the identity recorded in console sessions. The console
// has a single shared operator credential, matching the original gate.
const adminActor = "admin"

// Auth groups the login-gate HTTP handlers.
type Auth struct {
	renderer     *render.Renderer
	sessions     *session.Store
	passwordHash []byte
	totpSecret   string
}

// NewAuth creates the Auth handler group. The admin password is hashed at
// startup so the plaintext never sits in the handler; totpSecret may be
// empty, which disables the second step.
func NewAuth(renderer *render.Renderer, sessions *session.Store, adminPassword, totpSecret string) (*Auth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Auth{
		renderer:     renderer,
		sessions:     sessions,
		passwordHash: hash,
		totpSecret:   totpSecret,
	}, nil
}

// LoginPage renders the login form at the console root.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.TwoFADone {
		http.Redirect(w, r, "/inventory", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "login", &render.PageData{Title: "Sign In"})
}

// LoginSubmit processes the login form.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")

	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		slog.Debug("login failed", "remote", r.RemoteAddr)
		a.renderer.Page(w, r, "login", &render.PageData{
			Title: "Sign In",
			Error: "Invalid password.",
		})
		return
	}

	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		Actor:     adminActor,
		TwoFADone: a.totpSecret == "",
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Debug("login successful")
	if a.totpSecret != "" {
		http.Redirect(w, r, "/2fa/verify", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

// Logout destroys the session and returns to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// TwoFASetupPage generates a fresh TOTP secret and shows it as a QR code.
// The console keeps no user database, so enrollment means configuring the
// generated secret in the environment and restarting.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "RTCObott",
		AccountName: adminActor,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr encode failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderer.Page(w, r, "2fa_setup", &render.PageData{
		Title: "Two-Factor Setup",
		Data: map[string]any{
			"Secret": key.Secret(),
			"QRCode": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		},
	})
}

// TwoFAVerifyPage renders the code prompt.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if sess.TwoFADone {
		http.Redirect(w, r, "/inventory", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "2fa_verify", &render.PageData{Title: "Two-Factor Verification"})
}

// TwoFAVerifySubmit checks the submitted TOTP code and marks the session
// verified.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if !totp.Validate(r.FormValue("code"), a.totpSecret) {
		a.renderer.Page(w, r, "2fa_verify", &render.PageData{
			Title: "Two-Factor Verification",
			Error: "Invalid code, try again.",
		})
		return
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}
