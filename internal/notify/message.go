package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeLayout = "Jan 2, 2006 15:04 MST"

type Message struct {
	To      string
	Subject string
	HTML    string
}

type RendererConfig struct {
	AppURL          string
	SupportEmail    string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// Renderer turns notification events into email messages.
type Renderer struct {
	cfg   RendererConfig
	pages map[string]*template.Template
	now   func() time.Time
}

type pageData struct {
	Name         string
	Link         string
	Expiry       string
	Time         string
	SupportEmail string
}

func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{"verification.html", "password_reset.html", "account_locked.html", "password_changed.html"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &Renderer{cfg: cfg, pages: pages, now: time.Now}, nil
}

func (r *Renderer) Verification(email, token string) (Message, error) {
	return r.render("verification.html", email, "Verify your email address", pageData{
		Link:   r.link("/verify-email", token),
		Expiry: humanDuration(r.cfg.VerificationTTL),
	})
}

func (r *Renderer) PasswordReset(email, token string) (Message, error) {
	return r.render("password_reset.html", email, "Reset your password", pageData{
		Link:   r.link("/reset-password", token),
		Expiry: humanDuration(r.cfg.ResetTTL),
	})
}

func (r *Renderer) AccountLocked(email string, lockedUntil time.Time) (Message, error) {
	return r.render("account_locked.html", email, "Your account has been temporarily locked", pageData{
		Time:         lockedUntil.UTC().Format(timeLayout),
		SupportEmail: r.cfg.SupportEmail,
	})
}

func (r *Renderer) PasswordChanged(email string) (Message, error) {
	return r.render("password_changed.html", email, "Your password has been changed", pageData{
		Time:         r.now().UTC().Format(timeLayout),
		SupportEmail: r.cfg.SupportEmail,
	})
}

func (r *Renderer) render(page, email, subject string, data pageData) (Message, error) {
	data.Name = displayName(email)

	var buf bytes.Buffer
	if err := r.pages[page].ExecuteTemplate(&buf, page, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s: %w", page, err)
	}
	return Message{To: email, Subject: subject, HTML: buf.String()}, nil
}

func (r *Renderer) link(path, token string) string {
	return r.cfg.AppURL + path + "?" + url.Values{"token": {token}}.Encode()
}

func displayName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
