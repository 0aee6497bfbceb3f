package main

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/builder"
	"github.com/meikuraledutech/builder/auth"
	"github.com/rs/zerolog"
)

const localUsername = "username"

// api holds the dependencies of the HTTP handlers.
type api struct {
	store        builder.Store
	catalog      *builder.Catalog
	verifier     *auth.Verifier // nil disables authentication
	rejectCycles bool
	log          zerolog.Logger
}

func newApp(a *api) *fiber.App {
	app := fiber.New()
	app.Use(a.logRequests)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := a.store.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := a.store.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Catalog ───────────────────────────────────────────────────────
	app.Get("/catalog", func(c fiber.Ctx) error {
		return c.JSON(a.catalog.Templates())
	})

	// ── Session ───────────────────────────────────────────────────────
	app.Get("/session", a.requireAuth, func(c fiber.Ctx) error {
		username, _ := c.Locals(localUsername).(string)
		return c.JSON(fiber.Map{"username": username, "authenticated": username != ""})
	})

	app.Post("/auth/logout", a.requireAuth, func(c fiber.Ctx) error {
		if a.verifier == nil {
			return c.SendStatus(204)
		}
		token, _ := auth.BearerToken(c.Get("Authorization"))
		if err := a.verifier.Revoke(c.Context(), token); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Dashboard ─────────────────────────────────────────────────────
	dashboard := app.Group("/dashboard", a.requireAuth)

	dashboard.Post("/workflows", func(c fiber.Ctx) error {
		var p builder.Payload
		if err := c.Bind().JSON(&p); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if strings.TrimSpace(p.Name) == "" {
			return c.Status(400).JSON(fiber.Map{"error": "name is required"})
		}
		w := &builder.Workflow{
			Name:        p.Name,
			Description: p.Description,
			Modules:     p.Modules,
			Connections: p.Connections,
		}
		if err := builder.ValidateGraph(w, a.catalog, a.rejectCycles); err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		saved, err := a.store.SaveWorkflow(c.Context(), w)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		a.log.Info().Str("workflow", saved.ID).Int("modules", len(saved.Modules)).
			Int("connections", len(saved.Connections)).Msg("workflow saved")
		return c.Status(201).JSON(saved)
	})

	dashboard.Get("/workflows", func(c fiber.Ctx) error {
		list, err := a.store.ListWorkflows(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(list)
	})

	// ── Workflows ─────────────────────────────────────────────────────
	workflows := app.Group("/workflows", a.requireAuth)

	workflows.Get("/:id", func(c fiber.Ctx) error {
		w, err := a.store.GetWorkflow(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if w == nil {
			return c.Status(404).JSON(fiber.Map{"error": builder.ErrWorkflowNotFound.Error()})
		}
		return c.JSON(w)
	})

	workflows.Delete("/:id", func(c fiber.Ctx) error {
		if err := a.store.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	workflows.Post("/:id/deploy", func(c fiber.Ctx) error {
		return c.Status(501).JSON(fiber.Map{"error": "deploy is not implemented"})
	})

	// ── Modules ───────────────────────────────────────────────────────
	workflows.Get("/:id/modules", func(c fiber.Ctx) error {
		modules, err := a.store.ListModules(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(modules)
	})

	workflows.Delete("/:id/modules/:moduleId", func(c fiber.Ctx) error {
		if err := a.store.DeleteModule(c.Context(), c.Params("id"), c.Params("moduleId")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Connections ───────────────────────────────────────────────────
	workflows.Get("/:id/connections", func(c fiber.Ctx) error {
		connections, err := a.store.ListConnections(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(connections)
	})

	workflows.Delete("/:id/connections/:connectionId", func(c fiber.Ctx) error {
		if err := a.store.DeleteConnection(c.Context(), c.Params("id"), c.Params("connectionId")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	return app
}

// requireAuth rejects requests without a valid bearer token and stores the
// username in the request locals. It lets everything through when no verifier
// is configured.
func (a *api) requireAuth(c fiber.Ctx) error {
	if a.verifier == nil {
		return c.Next()
	}
	token, err := auth.BearerToken(c.Get("Authorization"))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
	}
	claims, err := a.verifier.Verify(c.Context(), token)
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevoked) {
		return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	c.Locals(localUsername, claims.Username)
	return c.Next()
}

func (a *api) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	a.log.Debug().Str("method", c.Method()).Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).Dur("latency", time.Since(start)).Msg("request")
	return err
}
