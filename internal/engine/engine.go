// internal/engine/engine.go
//
// Match engine for a single memory-game session.
// Responsibilities:
//   - Accept card activations and apply flip/match/mismatch transitions.
//   - Gate input while a pair is resolving (at most 2 cards face up).
//   - Schedule the settle delays as cancellable callbacks keyed to the
//     session epoch; stale callbacks from a discarded session are dropped.
//   - Track elapsed time from the first accepted flip to completion.
//
// Notes:
//   - Invalid activations are silently ignored, never errors.
//   - Listener callbacks run outside the session lock.
//   - randomID() is a compact hex identifier for correlating server state.

package engine

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/davidalvz/memomatch/internal/deck"
)

// card couples an immutable deck card with its mutable state.
type card struct {
	deck.Card
	state CardState
}

// Session is the state machine for one game. A Session is created with a
// dealt deck, driven by Activate, and discarded via Close when the player
// starts over.
type Session struct {
	ID string

	mu        sync.Mutex
	deck      deck.Deck
	cards     map[string]*card
	flipped   []string // 0..2 face-up unresolved card ids
	matched   int
	pairCount int
	phase     Phase
	inputOn   bool
	startedAt time.Time
	finalTime time.Duration
	epoch     uint64
	closed    bool

	cfg      Config
	listener Listener

	now func() time.Time // test hook
}

// New creates a Session over a dealt deck. Zero-value delays fall back to
// the stock pacing (300ms match, 900ms mismatch). A nil listener is allowed.
func New(d deck.Deck, cfg Config, l Listener) *Session {
	if cfg.MatchDelay <= 0 {
		cfg.MatchDelay = 300 * time.Millisecond
	}
	if cfg.MismatchDelay <= cfg.MatchDelay {
		cfg.MismatchDelay = 3 * cfg.MatchDelay
	}
	if l == nil {
		l = noopListener{}
	}
	s := &Session{
		ID:        randomID(),
		deck:      d,
		cards:     make(map[string]*card, len(d)),
		pairCount: len(d) / 2,
		phase:     PhaseIdle,
		inputOn:   true,
		cfg:       cfg,
		listener:  l,
		now:       time.Now,
	}
	for _, c := range d {
		s.cards[c.ID] = &card{Card: c, state: CardFaceDown}
	}
	return s
}

// Activate handles one card activation from the player. Activations are
// ignored while input is gated, for unknown ids, and for cards that are
// already face up or matched.
func (s *Session) Activate(cardID string) {
	s.mu.Lock()
	if s.closed || s.phase == PhaseComplete || !s.inputOn {
		s.mu.Unlock()
		return
	}
	c, ok := s.cards[cardID]
	if !ok || c.state != CardFaceDown {
		s.mu.Unlock()
		return
	}

	var events []func()

	// Clock starts on the first accepted flip, not on deal.
	if s.phase == PhaseIdle {
		s.phase = PhasePlaying
		s.startedAt = s.now()
		events = append(events, s.listener.Started)
	}

	c.state = CardFaceUp
	s.flipped = append(s.flipped, cardID)
	events = append(events, func() { s.listener.Flipped(cardID) })

	if len(s.flipped) == 2 {
		// Gate input until resolution lands; this serializes access to
		// the flip set and the matched counter.
		s.inputOn = false
		a, b := s.flipped[0], s.flipped[1]
		delay := s.cfg.MismatchDelay
		if s.cards[a].PairID == s.cards[b].PairID {
			delay = s.cfg.MatchDelay
		}
		epoch := s.epoch
		time.AfterFunc(delay, func() { s.resolve(epoch, a, b) })
	}
	s.mu.Unlock()

	for _, fn := range events {
		fn()
	}
}

// resolve applies the outcome of a two-card comparison after its settle
// delay. A callback whose epoch no longer matches belongs to a discarded
// session and is dropped without touching state.
func (s *Session) resolve(epoch uint64, a, b string) {
	s.mu.Lock()
	if epoch != s.epoch || s.closed {
		s.mu.Unlock()
		return
	}
	ca, cb := s.cards[a], s.cards[b]

	var events []func()
	if ca.PairID == cb.PairID {
		ca.state, cb.state = CardMatched, CardMatched
		s.matched++
		done, total := s.matched, s.pairCount
		events = append(events, func() { s.listener.Matched(a, b, done, total) })
		if s.matched == s.pairCount {
			s.phase = PhaseComplete
			s.finalTime = s.now().Sub(s.startedAt)
			elapsed := s.finalTime
			events = append(events, func() { s.listener.Completed(elapsed) })
		}
	} else {
		ca.state, cb.state = CardFaceDown, CardFaceDown
		events = append(events, func() { s.listener.Mismatched(a, b) })
	}

	s.flipped = s.flipped[:0]
	if s.phase != PhaseComplete {
		s.inputOn = true
	}
	s.mu.Unlock()

	for _, fn := range events {
		fn()
	}
}

// Close discards the session. Pending settle callbacks observe the epoch
// bump and turn into no-ops; further activations are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	s.epoch++
	s.closed = true
	s.inputOn = false
	s.mu.Unlock()
}

// Snapshot returns a consistent view of the board. Face assets are included
// only for cards that are face up or matched.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:        s.phase,
		MatchedPairs: s.matched,
		PairCount:    s.pairCount,
		Cards:        make([]CardView, 0, len(s.deck)),
	}
	switch s.phase {
	case PhasePlaying:
		snap.Elapsed = s.now().Sub(s.startedAt)
	case PhaseComplete:
		snap.Elapsed = s.finalTime
	}
	for _, c := range s.deck {
		cv := CardView{ID: c.ID, State: s.cards[c.ID].state}
		if cv.State != CardFaceDown {
			cv.Asset = c.Asset
		}
		snap.Cards = append(snap.Cards, cv)
	}
	return snap
}

// Elapsed reports time since the first accepted flip; zero before that,
// frozen at the final time once complete.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhasePlaying:
		return s.now().Sub(s.startedAt)
	case PhaseComplete:
		return s.finalTime
	}
	return 0
}

// noopListener discards all events.
type noopListener struct{}

func (noopListener) Started()                      {}
func (noopListener) Flipped(string)                {}
func (noopListener) Matched(_, _ string, _, _ int) {}
func (noopListener) Mismatched(_, _ string)        {}
func (noopListener) Completed(time.Duration)       {}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
