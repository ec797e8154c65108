package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/davidalvz/memomatch/internal/config"
	"github.com/davidalvz/memomatch/internal/deck"
	"github.com/davidalvz/memomatch/internal/engine"
)

func testGameCfg() config.Game {
	return config.Game{
		MatchDelay:    10 * time.Millisecond,
		MismatchDelay: 30 * time.Millisecond,
		Tick:          5 * time.Millisecond,
		PairChoices:   []int{1, 2, 4},
	}
}

// fakeSource serves a fixed pool, or fails.
type fakeSource struct {
	err   error
	calls int
}

func (f *fakeSource) FetchUniqueAssets(ctx context.Context, n int) ([]deck.AssetID, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]deck.AssetID, n)
	for i := range out {
		out[i] = deck.AssetID(string(rune('a'+i)) + ".png")
	}
	return out, nil
}

// fakeStore records score calls in memory.
type fakeStore struct {
	mu       sync.Mutex
	bestMs   int64
	lastUser string
	records  int
}

func (f *fakeStore) RecordIfBest(ctx context.Context, username string, elapsed time.Duration, pairs int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records++
	ms := elapsed.Milliseconds()
	if f.bestMs == 0 || ms < f.bestMs {
		f.bestMs = ms
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) SetLastUser(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = name
	return nil
}

// fakePresenter captures render commands.
type fakePresenter struct {
	mu       sync.Mutex
	rendered []engine.CardView
	states   map[string]engine.CardState
	timers   []string
	notices  chan Notice
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{states: map[string]engine.CardState{}, notices: make(chan Notice, 4)}
}

func (f *fakePresenter) RenderDeck(cards []engine.CardView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = cards
	for _, c := range cards {
		f.states[c.ID] = c.State
	}
}

func (f *fakePresenter) UpdateCard(id string, st engine.CardState, asset deck.AssetID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = st
}

func (f *fakePresenter) UpdateTimer(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timers = append(f.timers, text)
}

func (f *fakePresenter) Notify(n Notice) { f.notices <- n }

func (f *fakePresenter) cardIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.rendered))
	for _, c := range f.rendered {
		out = append(out, c.ID)
	}
	return out
}

func waitNotice(t *testing.T, p *fakePresenter) Notice {
	t.Helper()
	select {
	case n := <-p.notices:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
		return Notice{}
	}
}

func TestStartRendersFaceDownDeck(t *testing.T) {
	src := &fakeSource{}
	st := &fakeStore{}
	p := newFakePresenter()
	c := NewController(testGameCfg(), src, st)

	g, err := c.Start(context.Background(), "alice", 4, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Close()

	if len(p.rendered) != 8 {
		t.Fatalf("rendered %d cards, want 8", len(p.rendered))
	}
	for _, cv := range p.rendered {
		if cv.State != engine.CardFaceDown {
			t.Fatalf("card %s rendered %q, want down", cv.ID, cv.State)
		}
		if cv.Asset != "" {
			t.Fatalf("card %s leaks asset before flip", cv.ID)
		}
	}
	if st.lastUser != "alice" {
		t.Fatalf("last user = %q, want alice", st.lastUser)
	}
}

func TestStartRequiresPlayerName(t *testing.T) {
	src := &fakeSource{}
	c := NewController(testGameCfg(), src, &fakeStore{})

	if _, err := c.Start(context.Background(), "   ", 4, newFakePresenter()); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v, want ErrNameRequired", err)
	}
	if src.calls != 0 {
		t.Fatal("validation failure must not reach the image source")
	}
}

func TestStartRejectsUnsupportedPairCount(t *testing.T) {
	c := NewController(testGameCfg(), &fakeSource{}, &fakeStore{})
	if _, err := c.Start(context.Background(), "alice", 3, newFakePresenter()); !errors.Is(err, ErrBadPairCount) {
		t.Fatalf("err = %v, want ErrBadPairCount", err)
	}
}

func TestStartSurfacesAssetFailureWithoutPartialGame(t *testing.T) {
	boom := errors.New("catalog down")
	src := &fakeSource{err: boom}
	p := newFakePresenter()
	c := NewController(testGameCfg(), src, &fakeStore{})

	g, err := c.Start(context.Background(), "alice", 4, p)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped catalog error", err)
	}
	if g != nil {
		t.Fatal("failed start must not return a game")
	}
	if len(p.rendered) != 0 {
		t.Fatal("failed start must not render a deck")
	}
}

func TestCompletionRecordsScoreAndNotifies(t *testing.T) {
	st := &fakeStore{}
	p := newFakePresenter()
	c := NewController(testGameCfg(), &fakeSource{}, st)

	g, err := c.Start(context.Background(), "alice", 1, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Close()

	// Single pair: both cards match.
	ids := p.cardIDs()
	g.Activate(ids[0])
	g.Activate(ids[1])

	n := waitNotice(t, p)
	if n.Kind != NoticeSuccess {
		t.Fatalf("first completion notice kind = %q, want success", n.Kind)
	}
	if st.records != 1 {
		t.Fatalf("RecordIfBest called %d times, want 1", st.records)
	}
	if snap := g.Snapshot(); snap.Phase != engine.PhaseComplete {
		t.Fatalf("phase = %q, want complete", snap.Phase)
	}
}

func TestSecondSlowerGameNotifiesInfo(t *testing.T) {
	st := &fakeStore{bestMs: 1} // impossibly good existing record
	p := newFakePresenter()
	c := NewController(testGameCfg(), &fakeSource{}, st)

	g, err := c.Start(context.Background(), "bob", 1, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Close()

	ids := p.cardIDs()
	g.Activate(ids[0])
	g.Activate(ids[1])

	if n := waitNotice(t, p); n.Kind != NoticeInfo {
		t.Fatalf("notice kind = %q, want info", n.Kind)
	}
}

func TestClosedGameIgnoresInput(t *testing.T) {
	p := newFakePresenter()
	c := NewController(testGameCfg(), &fakeSource{}, &fakeStore{})

	g, err := c.Start(context.Background(), "alice", 1, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	g.Close()
	g.Close() // idempotent

	ids := p.cardIDs()
	g.Activate(ids[0])
	g.Activate(ids[1])

	select {
	case n := <-p.notices:
		t.Fatalf("closed game emitted notice %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
	if snap := g.Snapshot(); snap.MatchedPairs != 0 {
		t.Fatalf("closed game mutated: %d pairs matched", snap.MatchedPairs)
	}
}

func TestCloseMidPlayHaltsTimerUpdates(t *testing.T) {
	p := newFakePresenter()
	c := NewController(testGameCfg(), &fakeSource{}, &fakeStore{})

	g, err := c.Start(context.Background(), "alice", 2, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// One flip starts the clock.
	g.Activate(p.cardIDs()[0])
	deadline := time.Now().Add(time.Second)
	for {
		p.mu.Lock()
		n := len(p.timers)
		p.mu.Unlock()
		if n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("clock never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	g.Close()
	if !g.Closed() {
		t.Fatal("Closed() false after Close")
	}

	// Any tick already in flight lands, then the stream goes quiet.
	time.Sleep(10 * time.Millisecond)
	p.mu.Lock()
	after := len(p.timers)
	p.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	p.mu.Lock()
	final := len(p.timers)
	p.mu.Unlock()
	if final != after {
		t.Fatalf("timer updates kept flowing after close: %d -> %d", after, final)
	}
}

func TestTimerUpdatesFlowToPresenter(t *testing.T) {
	p := newFakePresenter()
	c := NewController(testGameCfg(), &fakeSource{}, &fakeStore{})

	g, err := c.Start(context.Background(), "alice", 2, p)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer g.Close()

	g.Activate(p.cardIDs()[0])

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		n := len(p.timers)
		p.mu.Unlock()
		if n >= 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no timer updates reached the presenter")
}
