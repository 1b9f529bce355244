package main

import (
	"log"
	"log/slog"
	"os"

	"xtts-desktop/internal/bootstrap"
)

// main runs the desktop app with frontend assets served from ./frontend on disk.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	app, err := bootstrap.New(logger)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
