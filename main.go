package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/davidalvz/memomatch/internal/config"
	"github.com/davidalvz/memomatch/internal/httpserver"
	"github.com/davidalvz/memomatch/internal/pokeapi"
	"github.com/davidalvz/memomatch/internal/score"
	"github.com/davidalvz/memomatch/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	scores, err := score.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open score store")
	}
	defer scores.Close()

	source := pokeapi.New(cfg.Catalog)
	ctrl := session.NewController(cfg.Game, source, scores)

	srv := httpserver.New(cfg, ctrl, scores)
	log.Info().Str("port", cfg.Port).Msg("starting memomatch server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
