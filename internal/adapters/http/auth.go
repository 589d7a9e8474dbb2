package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/ui"
)

const sessionCookieName = "notices_session"

type contextKey string

const identityKey contextKey = "identity"

// authenticateRequest resolves the caller from an API token header, then the
// session cookie. When login is not required an unauthenticated caller
// becomes the anonymous identity.
func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	if token := headerToken(r); token != "" {
		if identity, err := h.service.AuthenticateBearerToken(r.Context(), token); err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		if identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value); authErr == nil {
			return identity, true
		}
	}

	if !h.service.LoginRequired() {
		return h.service.AnonymousIdentity(), true
	}
	return domain.Identity{}, false
}

// headerToken accepts "Bearer <t>" and "Token <t>".
func headerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	lower := strings.ToLower(authHeader)
	for _, scheme := range []string{"bearer ", "token "} {
		if strings.HasPrefix(lower, scheme) {
			return strings.TrimSpace(authHeader[len(scheme):])
		}
	}
	return ""
}

func (h *Handler) requireAuthGUI(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := h.authenticateRequest(r)
			if !ok || (identity.Anonymous && !h.service.Can(identity, permission)) {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			if !h.service.Can(identity, permission) {
				http.Error(w, "You do not have permission to view this page.", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

// requireAuthAPI checks permission when it is non-empty. An anonymous caller
// without the permission is treated as unauthenticated.
func (h *Handler) requireAuthAPI(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := h.authenticateRequest(r)
			if !ok || (identity.Anonymous && (permission == "" || !h.service.Can(identity, permission))) {
				writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}
			if permission != "" && !h.service.Can(identity, permission) {
				writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(identityKey)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func actor(r *http.Request) domain.Identity {
	identity, _ := identityFromContext(r.Context())
	return identity
}

func currentUserEmail(ctx context.Context) string {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.User.Email
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(h.opts.BaseURL, "https://"),
		MaxAge:   int(h.opts.SessionTTL / time.Second),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if err := ui.LoginPage("", r.URL.Query().Get("next")).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	_, token, err := h.service.LoginWithSession(r.Context(), email, password, h.opts.SessionTTL)
	if err != nil {
		h.log.Info("login failed", "email", email)
		w.WriteHeader(http.StatusUnauthorized)
		_ = ui.LoginPage("Invalid email or password.", r.Form.Get("next")).Render(r.Context(), w)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, safeNext(r.Form.Get("next")), http.StatusSeeOther)
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		_ = h.service.LogoutSession(r.Context(), c.Value)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type apiLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid payload")
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password, h.opts.SessionTTL)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "mode": "session"})
		return
	}

	u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "token": token, "mode": "token"})
}

func (h *Handler) handleAPIWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity := actor(r)
	perms := make([]string, 0, len(identity.Permissions))
	for p := range identity.Permissions {
		perms = append(perms, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     identity.User.ID,
		"email":       identity.User.Email,
		"permissions": sortedStrings(perms),
	})
}

func (h *Handler) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		if err := h.service.LogoutSession(r.Context(), c.Value); err != nil && !errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
