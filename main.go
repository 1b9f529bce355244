package main

import (
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"xtts-desktop/internal/bootstrap"
)

//go:embed all:frontend
var embedded embed.FS

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	appAssets, err := fs.Sub(embedded, "frontend")
	if err != nil {
		log.Fatalf("frontend assets: %v", err)
	}

	app, err := bootstrap.NewWithAssets(appAssets, logger)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
