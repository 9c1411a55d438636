package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptoticket/rn-version-admin/internal/server/handlers"
	"github.com/cryptoticket/rn-version-admin/internal/server/middleware"
	"github.com/cryptoticket/rn-version-admin/internal/services"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

// Deps are the constructed collaborators the routes need.
type Deps struct {
	Bundles     *handlers.Bundles
	Users       *handlers.Users
	Auth        *handlers.Auth
	Issuer      *services.TokenIssuer
	UserStore   *store.UserStore
	StorageRoot string
}

// RegisterRoutes wires the API surface onto the fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	// locally stored bundle files
	app.Static("/static/bundles", d.StorageRoot)

	session := middleware.SessionRequired(d.Issuer)
	apiToken := middleware.APITokenRequired(d.UserStore)

	api := app.Group("/api/v1")

	// bundles
	api.Post("/bundles", apiToken, d.Bundles.Create)
	api.Get("/bundles", session, d.Bundles.List)
	api.Get("/bundles/latest/:platform", d.Bundles.Latest)
	api.Patch("/bundles/:id", session, d.Bundles.Update)
	api.Delete("/bundles/:id", session, d.Bundles.Delete)

	// users
	api.Post("/users", session, d.Users.Create)
	api.Get("/users", session, d.Users.List)
	api.Patch("/users/:id", session, d.Users.Update)
	api.Delete("/users/:id", session, d.Users.Delete)

	// oauth callbacks
	api.Get("/auth/gate/callback", d.Auth.GateCallback)
	api.Get("/auth/google/callback", d.Auth.GoogleCallback)

	// health
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "time": time.Now()})
	})
}
