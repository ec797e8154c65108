// internal/pokeapi/client.go
//
// Image source backed by the PokeAPI catalog.
// Responsibilities:
//   - Probe random catalog ids for official-artwork URLs.
//   - Deduplicate and skip entries without artwork (some specials have none).
//   - Bound the whole acquisition: each probe gets its own timeout, and the
//     total attempt budget is requested count × AttemptMultiplier. Exhausting
//     the budget fails the acquisition with ErrInsufficientAssets.
//
// Individual probe failures are logged and skipped, never propagated.

package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davidalvz/memomatch/internal/config"
	"github.com/davidalvz/memomatch/internal/deck"
)

// ErrInsufficientAssets means the catalog could not deliver enough unique,
// loadable assets within the attempt budget.
var ErrInsufficientAssets = errors.New("pokeapi: insufficient unique assets")

// Client fetches unique face assets from the catalog.
type Client struct {
	baseURL           string
	maxID             int
	probeTimeout      time.Duration
	attemptMultiplier int
	http              *http.Client

	pickID func() int // test hook; defaults to uniform [1, maxID]
}

// New builds a Client from catalog configuration.
func New(cfg config.Catalog) *Client {
	c := &Client{
		baseURL:           cfg.BaseURL,
		maxID:             cfg.MaxID,
		probeTimeout:      cfg.ProbeTimeout,
		attemptMultiplier: cfg.AttemptMultiplier,
		http:              &http.Client{},
	}
	if c.maxID <= 0 {
		c.maxID = 898
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = 3 * time.Second
	}
	if c.attemptMultiplier <= 0 {
		c.attemptMultiplier = 12
	}
	c.pickID = func() int { return rand.Intn(c.maxID) + 1 }
	return c
}

// pokemonDoc is the slice of the catalog response we care about.
type pokemonDoc struct {
	Sprites struct {
		Other struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
}

// FetchUniqueAssets returns n unique artwork URLs, probing random catalog
// ids until satisfied or the attempt budget runs out.
func (c *Client) FetchUniqueAssets(ctx context.Context, n int) ([]deck.AssetID, error) {
	if n <= 0 {
		return nil, fmt.Errorf("pokeapi: asset count must be positive, got %d", n)
	}
	budget := n * c.attemptMultiplier
	seen := make(map[deck.AssetID]struct{}, n)
	out := make([]deck.AssetID, 0, n)

	for attempt := 0; attempt < budget && len(out) < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := c.pickID()
		asset, err := c.probe(ctx, id)
		if err != nil {
			log.Debug().Err(err).Int("id", id).Msg("asset probe failed")
			continue
		}
		if asset == "" {
			// No official artwork for this entry.
			continue
		}
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		out = append(out, asset)
	}

	if len(out) < n {
		log.Warn().Int("got", len(out)).Int("want", n).Int("budget", budget).
			Msg("asset acquisition exhausted its attempt budget")
		return nil, fmt.Errorf("%w: got %d of %d in %d attempts", ErrInsufficientAssets, len(out), n, budget)
	}
	return out, nil
}

// probe fetches one catalog entry under its own deadline and extracts the
// artwork URL (may be empty).
func (c *Client) probe(ctx context.Context, id int) (deck.AssetID, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%d", c.baseURL, id), nil)
	if err != nil {
		return "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pokeapi: status %d for id %d", res.StatusCode, id)
	}

	var doc pokemonDoc
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("pokeapi: decode id %d: %w", id, err)
	}
	return deck.AssetID(doc.Sprites.Other.OfficialArtwork.FrontDefault), nil
}
