package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/meikuraledutech/builder"
	"github.com/meikuraledutech/builder/auth"
	"github.com/meikuraledutech/builder/config"
	"github.com/meikuraledutech/builder/gateway"
	"github.com/meikuraledutech/builder/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.AppName, cfg.AppLogLevel)

	editor := builder.NewEditor(builder.DefaultCatalog())
	editor.SetName("Support triage")
	canvas := builder.NewCanvas(editor)

	// ── Drag two modules from the sidebar onto the canvas ─────────────
	sentiment, _, err := canvas.Drop([]byte(`{"moduleType": "sentiment-analysis"}`), builder.Point{X: 160, Y: 120})
	if err != nil {
		log.Fatal().Err(err).Msg("drop")
	}
	hook, _, err := canvas.Drop([]byte(`{"moduleType": "webhook"}`), builder.Point{X: 520, Y: 120})
	if err != nil {
		log.Fatal().Err(err).Msg("drop")
	}
	fmt.Printf("placed %s and %s\n", sentiment.ID, hook.ID)

	// ── Nudge the webhook down ────────────────────────────────────────
	if err := canvas.BeginDrag(hook.ID, builder.Point{X: 520, Y: 120}); err != nil {
		log.Fatal().Err(err).Msg("drag")
	}
	canvas.PointerMove(builder.Point{X: 520, Y: 200})
	canvas.EndDrag()

	// ── Wire sentiment → webhook ──────────────────────────────────────
	canvas.OutputPort(sentiment.ID, builder.HandleOutput)
	if _, _, err := canvas.InputPort(hook.ID, builder.HandleInput); err != nil {
		log.Fatal().Err(err).Msg("connect")
	}

	// ── Configure the webhook ─────────────────────────────────────────
	panel, err := canvas.Select(hook.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("select")
	}
	for _, f := range panel.Fields() {
		fmt.Printf("  %-10s %-8s %v\n", f.Label, f.Kind, f.Value)
	}
	if err := panel.Set("url", "https://hooks.example.com/triage"); err != nil {
		log.Fatal().Err(err).Msg("configure")
	}
	if err := panel.Set("method", "PUT"); err != nil {
		log.Fatal().Err(err).Msg("configure")
	}
	if err := panel.Save(); err != nil {
		log.Fatal().Err(err).Msg("save panel")
	}

	for _, e := range canvas.Edges() {
		fmt.Println("edge:", e.D)
	}
	printJSON(editor.Payload())

	// ── Save to the backend ───────────────────────────────────────────
	session := builder.NewSession()
	if secret := cfg.AuthJWTSecret; secret != "" {
		token, err := auth.NewVerifier([]byte(secret), nil).Issue("example", time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		if err := session.Login(token); err != nil {
			log.Fatal().Err(err).Msg("login")
		}
		defer session.Logout()
	}

	opts := []gateway.Option{}
	if session.LoggedIn() {
		opts = append(opts, gateway.WithSession(session))
	}
	client := gateway.New(cfg.BackendURL, opts...)

	resp, err := editor.Save(ctx, client)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error saving workflow:", err)
		os.Exit(1)
	}
	fmt.Println("\nsaved:")
	fmt.Println(string(resp))

	list, err := client.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list")
	}
	fmt.Printf("\nbackend has %d workflow(s)\n", len(list))
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
