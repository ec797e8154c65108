// internal/engine/types.go
//
// Core type definitions for the match engine.
// Defines:
//   - CardState: per-card lifecycle (down/up/matched).
//   - Phase: coarse session state (idle/playing/complete).
//   - Listener: outbound state-change notifications.
//   - Snapshot/CardView: read-only view of the board for rendering.

package engine

import (
	"time"

	"github.com/davidalvz/memomatch/internal/deck"
)

// CardState is the lifecycle state of a single card.
// FaceUp is reachable only from FaceDown via an accepted activation;
// CardMatched only from FaceUp when both flipped cards share a pair.
type CardState string

const (
	CardFaceDown CardState = "down"
	CardFaceUp   CardState = "up"
	CardMatched  CardState = "matched"
)

// Phase is the coarse state of the session as a whole.
type Phase string

const (
	PhaseIdle     Phase = "idle"    // deck dealt, no card flipped yet
	PhasePlaying  Phase = "playing" // first flip accepted, clock running
	PhaseComplete Phase = "complete"
)

// Listener receives state-change notifications from a Session. The engine
// never reaches into presentation state; it only emits these events.
// Callbacks are invoked outside the engine lock, one event at a time.
type Listener interface {
	// Started fires once, on the first accepted activation of the session.
	Started()
	// Flipped fires when a card turns face up.
	Flipped(cardID string)
	// Matched fires after the match settle delay with the pair progress.
	Matched(a, b string, done, total int)
	// Mismatched fires after the mismatch settle delay; both cards are
	// face down again.
	Mismatched(a, b string)
	// Completed fires exactly once, when the last pair is matched.
	Completed(elapsed time.Duration)
}

// Config holds the settle-delay pacing for a session.
// MismatchDelay is intentionally the longer of the two: the player gets time
// to memorize the revealed positions before they flip back.
type Config struct {
	MatchDelay    time.Duration
	MismatchDelay time.Duration
}

// CardView is one card as exposed to presentation. The face asset is
// revealed only while the card is face up or matched.
type CardView struct {
	ID    string       `json:"id"`
	State CardState    `json:"state"`
	Asset deck.AssetID `json:"asset,omitempty"`
}

// Snapshot is a consistent read of the whole board.
type Snapshot struct {
	Phase        Phase         `json:"phase"`
	MatchedPairs int           `json:"matchedPairs"`
	PairCount    int           `json:"pairCount"`
	Elapsed      time.Duration `json:"-"`
	Cards        []CardView    `json:"cards"`
}
