package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"tg-gate-bot/internal/adapters/store"
	"tg-gate-bot/internal/infra/db"
)

func main() {
	var (
		dir        string
		target     string
		sqlitePath string
		pgDSN      string
	)
	flag.StringVar(&dir, "dir", "./data", "Directory with users.json, channels.json and movies.json")
	flag.StringVar(&target, "to", "sqlite", "Target store: sqlite or postgres")
	flag.StringVar(&sqlitePath, "sqlite", envOr("SQLITE_PATH", "./data/bot.db"), "Path to SQLite database")
	flag.StringVar(&pgDSN, "pg", os.Getenv("PG_DSN"), "Postgres DSN")
	flag.Parse()

	if _, err := os.Stat(dir); err != nil {
		log.Fatal().Err(err).Msg("store-import: source directory is not accessible")
	}
	fileBackend, err := store.NewFileBackend(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("store-import: failed to open source directory")
	}
	src := store.New(fileBackend, "file")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var dst *store.Documents
	switch target {
	case "sqlite":
		backend, err := store.OpenSQLite(ctx, sqlitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("store-import: failed to open SQLite")
		}
		defer backend.Close()
		dst = store.New(backend, "sqlite")
	case "postgres":
		if pgDSN == "" {
			log.Fatal().Msg("store-import: Postgres DSN is required (-pg or PG_DSN)")
		}
		pool, err := db.Connect(ctx, pgDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store-import: failed to connect to database")
		}
		defer pool.Close()
		backend, err := store.NewPostgresBackend(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("store-import: failed to prepare schema")
		}
		dst = store.New(backend, "postgres")
	default:
		log.Fatal().Str("to", target).Msg("store-import: unknown target store")
	}

	stats, err := store.Copy(ctx, src, dst)
	if err != nil {
		log.Fatal().Err(err).Msg("store-import: import failed")
	}
	fmt.Printf("Imported %d users, %d channels and %d items into %s\n", stats.Users, stats.Channels, stats.Items, target)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
