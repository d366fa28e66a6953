package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/application/account"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// sessionCookieName holds the app's own session JWT. The Saleor auth
// cookies are namespaced by API URL so several storefronts can share a
// session domain.
const sessionCookieName = "openweb3-walletpay"

// AuthHandler signs Telegram users into their bound Saleor accounts.
type AuthHandler struct {
	svc           account.Service
	saleorAPIURL  string
	sessionDomain string
	logger        zerolog.Logger
}

func NewAuthHandler(svc account.Service, saleorAPIURL, sessionDomain string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		saleorAPIURL:  saleorAPIURL,
		sessionDomain: sessionDomain,
		logger:        logger.With().Str("component", "auth_handler").Logger(),
	}
}

func (h *AuthHandler) accessTokenCookie() string {
	return h.saleorAPIURL + "+saleor_auth_access_token"
}

func (h *AuthHandler) refreshTokenCookie() string {
	return h.saleorAPIURL + "+saleor_auth_module_refresh_token"
}

func (h *AuthHandler) authStateCookie() string {
	return h.saleorAPIURL + "+saleor_auth_module_auth_state"
}

// The Saleor cookie names embed a URL, which http.Cookie refuses to
// serialize, so Set-Cookie headers are written by hand.
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	w.Header().Add("Set-Cookie", fmt.Sprintf(
		"%s=%s; Path=/; HttpOnly; SameSite=Lax; Domain=%s; Secure; Expires=%s",
		name, value, h.sessionDomain, expires.UTC().Format(http.TimeFormat)))
}

func (h *AuthHandler) removeCookie(w http.ResponseWriter, name string) {
	w.Header().Add("Set-Cookie", fmt.Sprintf(
		"%s=; Path=/; HttpOnly; SameSite=Lax; Domain=%s; Secure; Max-Age=0",
		name, h.sessionDomain))
}

// cookieValue parses the Cookie header by hand. The stock parser drops
// cookies whose names contain URL characters, which ours do.
func cookieValue(r *http.Request, name string) string {
	for _, header := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(header, ";") {
			pair = strings.TrimSpace(pair)
			if value, ok := strings.CutPrefix(pair, name+"="); ok {
				return value
			}
		}
	}
	return ""
}

func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitDataRaw string `json:"initDataRaw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitDataRaw == "" {
		writeFailure(w, "Missing initDataRaw parameter")
		return
	}

	refreshToken := cookieValue(r, h.refreshTokenCookie())
	accessToken := cookieValue(r, h.accessTokenCookie())
	if accessToken == "" {
		// Without an access token the refresh token alone cannot resume
		// a session.
		refreshToken = ""
	}

	result, err := h.svc.Authenticate(r.Context(), req.InitDataRaw, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeFailure(w, "Invalid init data")
			return
		}
		h.logger.Error().Err(err).Msg("authentication failed")
		writeFailure(w, "Authentication failed")
		return
	}

	if result.Anonymous {
		for _, name := range []string{sessionCookieName, h.authStateCookie(), h.accessTokenCookie(), h.refreshTokenCookie()} {
			h.removeCookie(w, name)
		}
		writeJSON(w, http.StatusOK, Envelope{Code: codeAnonymous, Message: "Anonymous user login"})
		return
	}

	if result.Reused {
		writeSuccess(w, map[string]any{"isValid": true})
		return
	}

	expires := time.Now().Add(24 * time.Hour)
	cookies := [][2]string{
		{sessionCookieName, result.SessionToken},
		{h.authStateCookie(), "signedIn"},
		{h.accessTokenCookie(), result.SaleorToken},
		{h.refreshTokenCookie(), result.RefreshToken},
	}
	for _, c := range cookies {
		h.setCookie(w, c[0], c[1], expires)
	}

	writeSuccess(w, map[string]any{
		"detail": map[string]any{
			"user":       result.User,
			"startParam": result.StartParam,
		},
		"localStorage": cookies,
	})
}
