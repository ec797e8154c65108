// internal/config/config.go
//
// Environment-backed configuration for the memomatch server.
// Responsibilities:
//   - Collect every tunable in one struct (server, game pacing, catalog probing).
//   - Parse env vars with sane defaults so the server runs with zero setup.
//   - Enforce the one pacing invariant: the mismatch settle delay must stay
//     longer than the match settle delay (the player needs time to memorize
//     the two cards before they flip back).
//
// Environment variables:
//   PORT, DB_PATH, LOG_LEVEL, CLIENT_ORIGIN, JWT_SECRET
//   MATCH_DELAY_MS, MISMATCH_DELAY_MS, TICK_MS, PAIR_CHOICES
//   POKEAPI_URL, POKEAPI_MAX_ID, PROBE_TIMEOUT_MS, ATTEMPT_MULTIPLIER

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults for the game pacing constants. The delays come straight from the
// original UX tuning: 300ms to settle a match, 900ms for a mismatch.
const (
	DefaultMatchDelay    = 300 * time.Millisecond
	DefaultMismatchDelay = 900 * time.Millisecond
	DefaultTick          = 50 * time.Millisecond
)

// Config is the full server configuration.
type Config struct {
	Port         string
	DBPath       string
	LogLevel     string
	ClientOrigin string
	JWTSecret    string

	Game    Game
	Catalog Catalog
}

// Game holds pacing and board-size settings for a session.
type Game struct {
	MatchDelay    time.Duration // settle delay applied after a successful match
	MismatchDelay time.Duration // settle delay before a mismatch flips back
	Tick          time.Duration // stopwatch reporting interval
	PairChoices   []int         // pair counts the player may pick from
}

// Catalog configures the image-source probing loop.
type Catalog struct {
	BaseURL           string        // catalog endpoint, e.g. https://pokeapi.co/api/v2/pokemon
	MaxID             int           // highest catalog id to probe
	ProbeTimeout      time.Duration // per-probe deadline
	AttemptMultiplier int           // attempt budget = requested count × this
}

// FromEnv builds a Config from the environment, falling back to defaults.
func FromEnv() Config {
	c := Config{
		Port:         envStr("PORT", "5176"),
		DBPath:       envStr("DB_PATH", "./data/memomatch.db"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		ClientOrigin: envStr("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:    envStr("JWT_SECRET", "dev_secret_change_me"),
		Game: Game{
			MatchDelay:    envMS("MATCH_DELAY_MS", DefaultMatchDelay),
			MismatchDelay: envMS("MISMATCH_DELAY_MS", DefaultMismatchDelay),
			Tick:          envMS("TICK_MS", DefaultTick),
			PairChoices:   envInts("PAIR_CHOICES", []int{4, 6, 8, 10}),
		},
		Catalog: Catalog{
			BaseURL:           envStr("POKEAPI_URL", "https://pokeapi.co/api/v2/pokemon"),
			MaxID:             envInt("POKEAPI_MAX_ID", 898),
			ProbeTimeout:      envMS("PROBE_TIMEOUT_MS", 3*time.Second),
			AttemptMultiplier: envInt("ATTEMPT_MULTIPLIER", 12),
		},
	}

	// The mismatch delay must stay longer than the match delay.
	if c.Game.MismatchDelay <= c.Game.MatchDelay {
		log.Warn().
			Dur("match", c.Game.MatchDelay).
			Dur("mismatch", c.Game.MismatchDelay).
			Msg("mismatch delay not longer than match delay; using defaults")
		c.Game.MatchDelay = DefaultMatchDelay
		c.Game.MismatchDelay = DefaultMismatchDelay
	}
	return c
}

// envStr returns the value of k or def if unset/empty.
func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as a positive integer; def on absence or bad input.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envMS parses k as a millisecond count; def on absence or bad input.
func envMS(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

// envInts parses k as a comma-separated list of positive integers.
func envInts(k string, def []int) []int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return def
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
