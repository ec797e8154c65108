// internal/session/session.go
//
// Session controller: orchestrates one full game.
// Responsibilities:
//   - Validate the player name and pair count before any state is touched.
//   - Acquire unique face assets from the image source, build the deck, and
//     run the match engine until completion.
//   - Route engine events to the presentation layer and the stopwatch.
//   - On completion, record the score and report the outcome.
//
// The image source and the presentation layer are external collaborators
// behind the narrow interfaces below; the controller owns the GameSession
// and is the only component that constructs or tears one down.

package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davidalvz/memomatch/internal/config"
	"github.com/davidalvz/memomatch/internal/deck"
	"github.com/davidalvz/memomatch/internal/engine"
	"github.com/davidalvz/memomatch/internal/timer"
)

var (
	// ErrNameRequired rejects a start with an empty player name. Advisory
	// to the player, never fatal; no game state is touched.
	ErrNameRequired = errors.New("session: player name required")

	// ErrBadPairCount rejects a pair count outside the configured choices.
	ErrBadPairCount = errors.New("session: unsupported pair count")
)

// ImageSource supplies a stream of unique visual-asset identifiers.
type ImageSource interface {
	FetchUniqueAssets(ctx context.Context, n int) ([]deck.AssetID, error)
}

// NoticeKind classifies an end-of-game (or advisory) notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
)

// Notice is a player-facing notification.
type Notice struct {
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Kind  NoticeKind `json:"kind"`
}

// Presenter receives render commands. Input events flow the other way,
// through Game.Activate.
type Presenter interface {
	RenderDeck(cards []engine.CardView)
	UpdateCard(id string, state engine.CardState, asset deck.AssetID)
	UpdateTimer(text string)
	Notify(n Notice)
}

// ScoreStore is the slice of the score store the controller needs.
// *score.Store satisfies it.
type ScoreStore interface {
	RecordIfBest(ctx context.Context, username string, elapsed time.Duration, pairs int) (bool, error)
	SetLastUser(ctx context.Context, name string) error
}

// Controller starts games. One Controller serves the whole process; each
// Start yields an independently owned Game.
type Controller struct {
	cfg    config.Game
	source ImageSource
	scores ScoreStore
}

// NewController wires the collaborators.
func NewController(cfg config.Game, source ImageSource, scores ScoreStore) *Controller {
	return &Controller{cfg: cfg, source: source, scores: scores}
}

// PairChoices reports the pair counts a player may pick from.
func (c *Controller) PairChoices() []int {
	return slices.Clone(c.cfg.PairChoices)
}

// Start runs session setup: validation, asset acquisition, deck build,
// engine creation, initial render. On any failure no partial game is left
// behind. The clock does not start until the first flip.
func (c *Controller) Start(ctx context.Context, username string, pairs int, p Presenter) (*Game, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNameRequired
	}
	if !slices.Contains(c.cfg.PairChoices, pairs) {
		return nil, fmt.Errorf("%w: %d", ErrBadPairCount, pairs)
	}

	// Remember the name for the next visit; best effort.
	if err := c.scores.SetLastUser(ctx, username); err != nil {
		log.Warn().Err(err).Msg("persist last user")
	}

	assets, err := c.source.FetchUniqueAssets(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("acquire assets: %w", err)
	}
	d, err := deck.Build(assets, nil)
	if err != nil {
		return nil, err
	}

	g := &Game{
		username:  username,
		pairs:     pairs,
		presenter: p,
		scores:    c.scores,
		stopwatch: timer.NewStopwatch(c.cfg.Tick),
		assets:    make(map[string]deck.AssetID, len(d)),
	}
	for _, card := range d {
		g.assets[card.ID] = card.Asset
	}
	g.engine = engine.New(d, engine.Config{
		MatchDelay:    c.cfg.MatchDelay,
		MismatchDelay: c.cfg.MismatchDelay,
	}, g)

	p.RenderDeck(g.engine.Snapshot().Cards)
	log.Info().Str("game", g.engine.ID).Str("user", username).Int("pairs", pairs).Msg("game started")
	return g, nil
}

// Game is one live session: the engine plus its timer, presenter, and
// score plumbing. It implements engine.Listener.
type Game struct {
	username  string
	pairs     int
	presenter Presenter
	scores    ScoreStore
	stopwatch *timer.Stopwatch
	engine    *engine.Session
	assets    map[string]deck.AssetID

	mu     sync.Mutex
	closed bool
}

// ID is the engine session identifier.
func (g *Game) ID() string { return g.engine.ID }

// Activate forwards a card activation into the match engine.
func (g *Game) Activate(cardID string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	g.engine.Activate(cardID)
}

// Snapshot returns the current board view.
func (g *Game) Snapshot() engine.Snapshot { return g.engine.Snapshot() }

// Elapsed reports the session clock.
func (g *Game) Elapsed() time.Duration { return g.engine.Elapsed() }

// Username reports the player who started this game.
func (g *Game) Username() string { return g.username }

// Closed reports whether the game has been torn down.
func (g *Game) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Close abandons the game: the engine drops pending settle callbacks and
// the stopwatch halts. Safe to call more than once; a closed game ignores
// further input.
func (g *Game) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.engine.Close()
	g.stopwatch.Stop()
}

// ----------------------- engine.Listener -----------------------

// Started begins the clock on the first accepted flip.
func (g *Game) Started() {
	g.stopwatch.Start(func(d time.Duration) {
		g.presenter.UpdateTimer(timer.Format(d))
	})
}

func (g *Game) Flipped(cardID string) {
	g.presenter.UpdateCard(cardID, engine.CardFaceUp, g.assets[cardID])
}

func (g *Game) Matched(a, b string, done, total int) {
	g.presenter.UpdateCard(a, engine.CardMatched, g.assets[a])
	g.presenter.UpdateCard(b, engine.CardMatched, g.assets[b])
}

func (g *Game) Mismatched(a, b string) {
	g.presenter.UpdateCard(a, engine.CardFaceDown, "")
	g.presenter.UpdateCard(b, engine.CardFaceDown, "")
}

// Completed finalizes the score and reports the outcome.
func (g *Game) Completed(elapsed time.Duration) {
	g.stopwatch.Stop()
	g.presenter.UpdateTimer(timer.Format(elapsed))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	isRecord, err := g.scores.RecordIfBest(ctx, g.username, elapsed, g.pairs)
	if err != nil {
		log.Warn().Err(err).Msg("record score")
	}

	n := Notice{
		Title: "Game complete",
		Body:  fmt.Sprintf("%s, your time was %s", g.username, timer.Format(elapsed)),
		Kind:  NoticeInfo,
	}
	if isRecord {
		n.Title = "New record!"
		n.Kind = NoticeSuccess
	}
	g.presenter.Notify(n)
	log.Info().Str("game", g.engine.ID).Bool("record", isRecord).
		Dur("elapsed", elapsed).Msg("game complete")
}
