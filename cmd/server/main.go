// Package main is the entry point for the movie watchlist server.
//
// MAIN PACKAGE IN GO:
// main stays minimal. Its job is to:
//  1. Read configuration (.env file, environment, flags)
//  2. Set up logging
//  3. Hand everything to internal/server and block until shutdown
//
// USAGE:
//
//	watchlist serve [--env-file .env] [--port 8080] [--log-level debug] [--static-dir web/static]
//
// Flags win over the environment, which wins over the .env file.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/sakif/movie-watchlist/internal/config"
	"github.com/sakif/movie-watchlist/internal/logging"
	"github.com/sakif/movie-watchlist/internal/server"
)

func main() {
	app := &cli.Command{
		Name:     "watchlist",
		Usage:    "Search movies and keep a personal watchlist",
		Commands: []*cli.Command{serveCommand()},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file (ignored if missing)",
				Value: ".env",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides PORT)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "static-dir",
				Usage: "Directory served under /static/ (overrides STATIC_DIR)",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	// === 1. READ CONFIGURATION ===
	// A missing .env is normal in production; real variables are already set.
	if err := godotenv.Load(cmd.String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", cmd.String("env-file"), err)
	}

	overrides := map[string]string{}
	if cmd.IsSet("port") {
		overrides["PORT"] = strconv.Itoa(int(cmd.Int("port")))
	}
	if cmd.IsSet("log-level") {
		overrides["LOG_LEVEL"] = cmd.String("log-level")
	}
	if cmd.IsSet("static-dir") {
		overrides["STATIC_DIR"] = cmd.String("static-dir")
	}
	getenv := func(key string) string {
		if v, ok := overrides[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	// === 2. SET UP LOGGING ===
	logger := logging.Setup(os.Stdout, getenv("LOG_LEVEL"))

	cfg, err := config.Load(getenv)
	if err != nil {
		// Names every missing variable at once.
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SESSION SECRET ===
	// Without SESSION_SECRET every restart signs out every visitor.
	if cfg.SessionSecret == "" {
		cfg.SessionSecret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	if abs, err := filepath.Abs(cfg.StaticDir); err == nil {
		cfg.StaticDir = abs
	}

	// === 4. DATABASE DIRECTORY ===
	dbDir := filepath.Dir(cfg.SessionDBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating session database directory %s: %w", dbDir, err)
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM.
	return srv.Start(ctx)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
