package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"portfolio/internal/auth"
	"portfolio/internal/geo"
	"time"
)

const (
	adminPrefix   = "/admin/analytics"
	loginPath     = adminPrefix + "/login"
	sessionCookie = "analytics_session"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<title>Analytics login</title>
</head>
<body>
<main>
<h1>Analytics</h1>
{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/admin/analytics/login">
<label for="password">Password</label>
<input id="password" type="password" name="password" autocomplete="current-password" autofocus required>
<button type="submit">Sign in</button>
</form>
</main>
</body>
</html>
`))

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := struct{ Error string }{Error: r.URL.Query().Get("error")}
	if err := loginPage.Execute(w, data); err != nil {
		slog.Error("failed to render login page", "error", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectLogin(w, r, "Invalid form")
		return
	}

	ip := s.proxies.ClientIP(r)
	res, err := s.auth.Login(r.Context(), ip, r.PostFormValue("password"))
	switch {
	case err == nil:
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    res.Token,
			Path:     adminPrefix,
			MaxAge:   int(s.auth.SessionTTL() / time.Second),
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteStrictMode,
		})
		slog.Info("Admin logged in")
		http.Redirect(w, r, adminPrefix, http.StatusFound)

	case errors.Is(err, auth.ErrLoginDisabled):
		redirectLogin(w, r, "Admin login disabled")

	case errors.Is(err, auth.ErrLockedOut):
		redirectLogin(w, r, lockoutMessage(res.RetryAfter))

	case errors.Is(err, auth.ErrInvalidPassword):
		if res.Locked {
			s.notifyLockout(r.Context(), ip)
			redirectLogin(w, r, lockoutMessage(res.RetryAfter))
			return
		}
		redirectLogin(w, r, fmt.Sprintf("Invalid password. %d attempts remaining.", res.Remaining))

	case errors.Is(err, auth.ErrTooManySessions):
		redirectLogin(w, r, "Too many active sessions")

	default:
		slog.Error("Admin login failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			slog.Error("failed to delete admin session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     adminPrefix,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// requireAdmin sends requests without a valid session cookie to the login
// page.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		ok, err := s.auth.Validate(r.Context(), c.Value)
		if err != nil {
			slog.Error("failed to validate admin session", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectLogin(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, loginPath+"?"+url.Values{"error": {msg}}.Encode(), http.StatusFound)
}

func lockoutMessage(retryAfter time.Duration) string {
	minutes := max(int(math.Ceil(retryAfter.Minutes())), 1)
	return fmt.Sprintf("Too many failed attempts. Try again in %d minutes.", minutes)
}

func (s *Server) notifyLockout(ctx context.Context, ip string) {
	if s.notifier == nil {
		return
	}
	origin := ""
	if !geo.IsPrivate(ip) {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		info, err := s.locator.Lookup(ctx, ip)
		cancel()
		if err == nil && info.Country != "" {
			origin = fmt.Sprintf(" (%s %s)", geo.CountryFlag(info.CountryCode), info.Country)
		}
	}
	s.notifier.Notify(fmt.Sprintf("Admin login locked for %s%s after repeated failures", ip, origin))
}
