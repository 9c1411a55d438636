package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cryptoticket/rn-version-admin/internal/services"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Auth handles the OAuth callback endpoints. Identity comes from an
// external issuer (gate service or Google); this service only checks that
// the email belongs to a known admin and then issues its own session JWT.
type Auth struct {
	issuer *services.TokenIssuer
	users  *store.UserStore
	google *oauth2.Config
	log    *zap.Logger
}

func NewAuth(issuer *services.TokenIssuer, users *store.UserStore, google *oauth2.Config, log *zap.Logger) *Auth {
	return &Auth{issuer: issuer, users: users, google: google, log: log}
}

// redirectWithSession issues a session token for the admin with this email
// and redirects to the home page with the token in the query string.
func (h *Auth) redirectWithSession(c *fiber.Ctx, email string) error {
	user, err := h.users.FindByEmail(c.Context(), email)
	if err != nil {
		return fiber.NewError(fiber.StatusForbidden, "User with this email was not found")
	}
	token, err := h.issuer.Sign(user.ID, user.Email)
	if err != nil {
		h.log.Error("session token signing failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return c.Redirect(fmt.Sprintf("/?token=%s", token))
}

// GateCallback finishes the gate OAuth flow: the gate service redirects
// here with its own JWT in the query string.
func (h *Auth) GateCallback(c *fiber.Ctx) error {
	gateToken := c.Query("token")
	if gateToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "JWT token was not found in query params")
	}
	claims, err := h.issuer.ParseGateToken(gateToken)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid gate token")
	}
	if !claims.IsManager {
		return fiber.NewError(fiber.StatusForbidden, "User has not enough permissions")
	}
	if claims.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email was not received from gate service")
	}
	return h.redirectWithSession(c, claims.Email)
}

// GoogleCallback finishes the Google OAuth code flow.
func (h *Auth) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Authorization code was not found in query params")
	}
	token, err := h.google.Exchange(c.Context(), code)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Google code exchange failed")
	}

	resp, err := h.google.Client(c.Context(), token).Get(googleUserInfoURL)
	if err != nil {
		h.log.Error("google userinfo request failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		h.log.Error("google userinfo decode failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	if info.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email was not received from Google OAuth")
	}
	return h.redirectWithSession(c, info.Email)
}
