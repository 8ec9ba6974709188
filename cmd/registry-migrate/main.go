package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chess-puzzle-bot/internal/adapters/repo"
	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/config"
	"chess-puzzle-bot/internal/infra/db"
)

func main() {
	var (
		from   string
		target string
		out    string
	)
	flag.StringVar(&from, "from", "used_puzzles.json", "Path to the registry file of any schema version")
	flag.StringVar(&target, "to", "file", "Target store: file or postgres")
	flag.StringVar(&out, "out", "", "Output file for -to file (defaults to -from, rewritten in place)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, version, err := repo.NewFileStore(from).LoadVersion(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("path", from).Msg("registry-migrate: failed to read registry")
	}

	var store domain.RegistryStore
	switch target {
	case "file":
		if out == "" {
			out = from
		}
		store = repo.NewFileStore(out)
	case "postgres":
		cfg := config.Load()
		if cfg.PGDSN == "" {
			log.Fatal().Msg("registry-migrate: PG_DSN environment variable is required")
		}
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("registry-migrate: failed to connect to database")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("registry-migrate: failed to create schema")
		}
		store = pg
	default:
		log.Fatal().Str("to", target).Msg("registry-migrate: unknown target, expected file or postgres")
	}

	if err := store.Save(ctx, snap); err != nil {
		log.Fatal().Err(err).Msg("registry-migrate: failed to write registry")
	}
	fmt.Printf("Migrated %d chats and %d posted puzzles from schema v%d to %s\n", len(snap.Chats), len(snap.Posted), version, target)
}
