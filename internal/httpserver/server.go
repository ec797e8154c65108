// internal/httpserver/server.go
//
// HTTP server wiring for the memomatch backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/score/best", "/profile/name".
//   - Game endpoints: POST /game/new, POST /game/flip, GET /game/state,
//     GET /game/events (SSE stream of render commands).
//   - Per-game JWT token + cookie handling; starting a new game fully tears
//     down the caller's previous one before anything else happens.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Card faces are server-authoritative: a deck payload never includes the
//     asset of a face-down card.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/davidalvz/memomatch/internal/config"
	"github.com/davidalvz/memomatch/internal/engine"
	"github.com/davidalvz/memomatch/internal/pokeapi"
	"github.com/davidalvz/memomatch/internal/score"
	"github.com/davidalvz/memomatch/internal/session"
	"github.com/davidalvz/memomatch/internal/sse"
	"github.com/davidalvz/memomatch/internal/store"
	"github.com/davidalvz/memomatch/internal/timer"
)

// liveGame couples a running game with its HTTP presenter and tracks when
// the owning client last touched it, for idle eviction.
type liveGame struct {
	game *session.Game
	pres *webPresenter

	lastSeen atomic.Int64 // unix nanos
}

func (lg *liveGame) touch() { lg.lastSeen.Store(time.Now().UnixNano()) }

func (lg *liveGame) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, lg.lastSeen.Load()))
}

// Idle games are swept so an abandoned session cannot keep its stopwatch
// ticking behind a presenter nobody reads.
const (
	gameIdleTTL   = 30 * time.Minute
	sweepInterval = time.Minute
)

// Server bundles router, controller, live-game registry, and score store.
type Server struct {
	r      *chi.Mux
	ctrl   *session.Controller
	scores *score.Store
	games  store.Store[*liveGame]
	secret string
	origin string

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, ctrl *session.Controller, scores *score.Store) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		ctrl:      ctrl,
		scores:    scores,
		games:     store.NewMemory[*liveGame](),
		secret:    cfg.JWTSecret,
		origin:    cfg.ClientOrigin,
		stopSweep: make(chan struct{}),
	}
	go s.sweepLoop()

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(corsOrigin(s.origin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"memomatch","endpoints":["/health","POST /game/new","POST /game/flip","GET /game/state","GET /game/events","GET /score/best"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Request/response endpoints get a handler time bound; asset
	// acquisition for /game/new runs inside it.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(15 * time.Second))
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/flip", s.handleFlip)
		r.Get("/game/state", s.handleState)
		r.Get("/score/best", s.handleBestScore)
		r.Get("/profile/name", s.handleProfileName)
	})

	// The SSE stream outlives any handler budget; no timeout middleware.
	s.r.Get("/game/events", s.handleEvents)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Close stops the idle sweeper and tears down every live game.
func (s *Server) Close() {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
	s.evictIdle(0)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// sweepLoop periodically evicts games nobody has touched for gameIdleTTL.
func (s *Server) sweepLoop() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case <-t.C:
			s.evictIdle(gameIdleTTL)
		}
	}
}

// evictIdle closes and removes every game idle for at least maxIdle,
// returning how many were evicted. Closing halts the game's stopwatch and
// drops any pending settle callbacks.
func (s *Server) evictIdle(maxIdle time.Duration) int {
	ctx := context.Background()
	now := time.Now()
	evicted := 0
	s.games.Range(ctx, func(id string, lg *liveGame) bool {
		if lg.idleFor(now) < maxIdle {
			return true
		}
		lg.game.Close()
		s.games.Delete(ctx, id)
		evicted++
		log.Debug().Str("game", id).Dur("idle", lg.idleFor(now)).Msg("idle game evicted")
		return true
	})
	return evicted
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Username string `json:"username"`
	Pairs    int    `json:"pairs"`
}
type newGameRes struct {
	GameID string            `json:"gameId"`
	Token  string            `json:"token"`
	Pairs  int               `json:"pairs"`
	Cards  []engine.CardView `json:"cards"`
}

// handleNewGame starts a fresh game for the caller. Any previous game bound
// to the presented token is closed first, so no stale timers or settle
// callbacks survive into the new session.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	// Tear down the caller's previous game, if any.
	if gid := s.gameIDFromToken(tokenFromRequest(r)); gid != "" {
		if lg, err := s.games.Get(r.Context(), gid); err == nil {
			lg.game.Close()
			s.games.Delete(r.Context(), gid)
			log.Debug().Str("game", gid).Msg("previous game closed on restart")
		}
	}

	pres := newWebPresenter()
	g, err := s.ctrl.Start(r.Context(), req.Username, req.Pairs, pres)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNameRequired):
			http.Error(w, `{"error":"name_required"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, session.ErrBadPairCount):
			http.Error(w, `{"error":"bad_pair_count"}`, http.StatusBadRequest)
		case errors.Is(err, pokeapi.ErrInsufficientAssets):
			http.Error(w, `{"error":"load_failed"}`, http.StatusConflict)
		default:
			log.Error().Err(err).Msg("start game")
			http.Error(w, `{"error":"load_failed"}`, http.StatusBadGateway)
		}
		return
	}

	lg := &liveGame{game: g, pres: pres}
	lg.touch()
	if err := s.games.Save(r.Context(), g.ID(), lg); err != nil {
		g.Close()
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	tok, exp, err := s.signGameToken(g.ID())
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setGameCookie(w, tok, exp)

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID: g.ID(),
		Token:  tok,
		Pairs:  req.Pairs,
		Cards:  g.Snapshot().Cards,
	})
}

// flipReq is the payload for POST /game/flip.
type flipReq struct {
	CardID string `json:"cardId"`
}

// stateRes is the polled game view.
type stateRes struct {
	engine.Snapshot
	Timer  string          `json:"timer"`
	Notice *session.Notice `json:"notice,omitempty"`
}

// handleFlip forwards one card activation into the engine. Invalid flips
// are silently absorbed by the engine; the response is simply the current
// state either way.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	lg := s.gameFromRequest(w, r)
	if lg == nil {
		return
	}
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	lg.game.Activate(req.CardID)
	_ = json.NewEncoder(w).Encode(s.stateOf(lg))
}

// handleState returns the current board, clock text, and any final notice.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	lg := s.gameFromRequest(w, r)
	if lg == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(s.stateOf(lg))
}

func (s *Server) stateOf(lg *liveGame) stateRes {
	return stateRes{
		Snapshot: lg.game.Snapshot(),
		Timer:    lg.pres.TimerText(),
		Notice:   lg.pres.LastNotice(),
	}
}

// gameFromRequest resolves the caller's live game from its token, writing
// the error response itself when the token or game is missing.
func (s *Server) gameFromRequest(w http.ResponseWriter, r *http.Request) *liveGame {
	gid := s.gameIDFromToken(tokenFromRequest(r))
	if gid == "" {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return nil
	}
	lg, err := s.games.Get(r.Context(), gid)
	if err != nil {
		http.Error(w, `{"error":"game_not_found"}`, http.StatusNotFound)
		return nil
	}
	lg.touch()
	return lg
}

// ------------------------------- SSE ---------------------------------------

// handleEvents streams render commands (deck, card, timer, notice frames)
// for the caller's game until the connection drops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	lg := s.gameFromRequest(w, r)
	if lg == nil {
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming_unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := lg.pres.events.Subscribe()
	defer lg.pres.events.Unsubscribe(ch)

	// Prime the stream with the current board and clock.
	writeFrame(w, sse.EventDeck, lg.game.Snapshot().Cards)
	writeFrame(w, sse.EventTimer, lg.pres.TimerText())
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			// A connected stream counts as activity.
			lg.touch()
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			fl.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// ------------------------------ SCORES -------------------------------------

// bestEntry decorates the stored record with a display string.
type bestEntry struct {
	score.Record
	Display string `json:"display"`
}

// handleBestScore returns the single global best record, or null.
func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	best, err := s.scores.Best(r.Context())
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	res := map[string]any{"best": nil}
	if best != nil {
		res["best"] = bestEntry{
			Record:  *best,
			Display: timer.Format(time.Duration(best.TimeMs) * time.Millisecond),
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleProfileName returns the last-used player name ("" when unknown).
func (s *Server) handleProfileName(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"username": s.scores.LastUser(r.Context()),
	})
}
