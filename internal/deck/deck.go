// internal/deck/deck.go
//
// Deck construction for a memory-matching game.
// Responsibilities:
//   - Pair each unique asset into two cards sharing a PairID.
//   - Shuffle the result with an unbiased Fisher–Yates pass.
//
// Notes:
//   - Asset uniqueness is the image source's contract; it is not re-checked here.
//   - A seeded *rand.Rand makes ordering deterministic for tests.

package deck

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
)

// ErrNoAssets is returned by Build when given an empty asset pool.
var ErrNoAssets = errors.New("deck: no assets")

// Build turns N unique assets into a shuffled 2N-card deck. Each asset at
// position i yields two cards with PairID=i and fresh card IDs.
// rng may be nil, in which case the global source is used.
func Build(assets []AssetID, rng *rand.Rand) (Deck, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}
	d := make(Deck, 0, 2*len(assets))
	for i, a := range assets {
		d = append(d,
			Card{ID: uuid.NewString(), PairID: i, Asset: a},
			Card{ID: uuid.NewString(), PairID: i, Asset: a},
		)
	}
	Shuffle(d, rng)
	return d, nil
}

// Shuffle reorders d in place using Fisher–Yates: for i from last down to 1,
// draw uniform j in [0, i] and swap.
func Shuffle(d Deck, rng *rand.Rand) {
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	for i := len(d) - 1; i > 0; i-- {
		j := intn(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}
