package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Game.MatchDelay != DefaultMatchDelay || cfg.Game.MismatchDelay != DefaultMismatchDelay {
		t.Fatalf("default delays = %v/%v", cfg.Game.MatchDelay, cfg.Game.MismatchDelay)
	}
	if len(cfg.Game.PairChoices) == 0 {
		t.Fatal("no default pair choices")
	}
	if cfg.Catalog.AttemptMultiplier != 12 {
		t.Fatalf("attempt multiplier = %d, want 12", cfg.Catalog.AttemptMultiplier)
	}
	if cfg.Catalog.MaxID != 898 {
		t.Fatalf("max id = %d, want 898", cfg.Catalog.MaxID)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_DELAY_MS", "100")
	t.Setenv("MISMATCH_DELAY_MS", "400")
	t.Setenv("PAIR_CHOICES", "2, 4, 6")
	t.Setenv("ATTEMPT_MULTIPLIER", "5")

	cfg := FromEnv()
	if cfg.Game.MatchDelay != 100*time.Millisecond {
		t.Fatalf("match delay = %v", cfg.Game.MatchDelay)
	}
	if cfg.Game.MismatchDelay != 400*time.Millisecond {
		t.Fatalf("mismatch delay = %v", cfg.Game.MismatchDelay)
	}
	want := []int{2, 4, 6}
	if len(cfg.Game.PairChoices) != len(want) {
		t.Fatalf("pair choices = %v", cfg.Game.PairChoices)
	}
	for i, n := range want {
		if cfg.Game.PairChoices[i] != n {
			t.Fatalf("pair choices = %v, want %v", cfg.Game.PairChoices, want)
		}
	}
	if cfg.Catalog.AttemptMultiplier != 5 {
		t.Fatalf("attempt multiplier = %d", cfg.Catalog.AttemptMultiplier)
	}
}

func TestMismatchDelayMustExceedMatchDelay(t *testing.T) {
	t.Setenv("MATCH_DELAY_MS", "500")
	t.Setenv("MISMATCH_DELAY_MS", "200")

	cfg := FromEnv()
	if cfg.Game.MismatchDelay <= cfg.Game.MatchDelay {
		t.Fatalf("invariant not restored: match=%v mismatch=%v",
			cfg.Game.MatchDelay, cfg.Game.MismatchDelay)
	}
}

func TestEnvIntsRejectsGarbage(t *testing.T) {
	t.Setenv("PAIR_CHOICES", "4,banana")
	cfg := FromEnv()
	want := []int{4, 6, 8, 10}
	if len(cfg.Game.PairChoices) != len(want) {
		t.Fatalf("garbage list not replaced by defaults: %v", cfg.Game.PairChoices)
	}
}
