package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"lobby-relay-server/archive"
	"lobby-relay-server/config"
	"lobby-relay-server/loghandler"
	"lobby-relay-server/lobby"
	"lobby-relay-server/server"
	"lobby-relay-server/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			log.Print("No .env file found; using environment variables.")
		}
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()
	slog.Info("configuration loaded",
		"tag", "startup",
		"reconnect_grace_seconds", cfg.ReconnectGraceSeconds,
		"session_cleanup_grace_seconds", cfg.SessionCleanupGraceSeconds,
		"max_name_length", cfg.MaxNameLength,
		"ws_port", cfg.WSPort,
	)

	ctx := context.Background()
	archiveSink, err := archive.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect archive sink: %v", err)
	}
	defer archiveSink.Close()

	lobbyRegistry := lobby.NewRegistry(cfg)
	sessionRegistry := session.NewRegistry(cfg, archiveSink)

	srv := server.New(cfg, lobbyRegistry, sessionRegistry)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	slog.Info("lobby relay server listening", "tag", "startup", "addr", addr)
	log.Fatal(http.ListenAndServe(addr, srv.Mux()))
}
