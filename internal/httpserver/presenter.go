// internal/httpserver/presenter.go
//
// The HTTP-facing presentation layer: render commands from the session
// controller are turned into SSE frames for subscribed clients, and the
// latest timer text / notice are retained for the polling endpoint.

package httpserver

import (
	"encoding/json"
	"sync"

	"github.com/davidalvz/memomatch/internal/deck"
	"github.com/davidalvz/memomatch/internal/engine"
	"github.com/davidalvz/memomatch/internal/session"
	"github.com/davidalvz/memomatch/internal/sse"
)

// webPresenter implements session.Presenter for one live game.
type webPresenter struct {
	events *sse.Broadcaster

	mu     sync.Mutex
	timer  string
	notice *session.Notice
}

func newWebPresenter() *webPresenter {
	return &webPresenter{events: sse.NewBroadcaster(), timer: "00:00.00"}
}

// cardUpdate is the payload of a card SSE frame.
type cardUpdate struct {
	ID    string           `json:"id"`
	State engine.CardState `json:"state"`
	Asset deck.AssetID     `json:"asset,omitempty"`
}

func (p *webPresenter) RenderDeck(cards []engine.CardView) {
	p.broadcast(sse.EventDeck, cards)
}

func (p *webPresenter) UpdateCard(id string, st engine.CardState, asset deck.AssetID) {
	p.broadcast(sse.EventCard, cardUpdate{ID: id, State: st, Asset: asset})
}

func (p *webPresenter) UpdateTimer(text string) {
	p.mu.Lock()
	p.timer = text
	p.mu.Unlock()
	p.broadcast(sse.EventTimer, text)
}

func (p *webPresenter) Notify(n session.Notice) {
	p.mu.Lock()
	p.notice = &n
	p.mu.Unlock()
	p.broadcast(sse.EventNotice, n)
}

// TimerText returns the last pushed clock text.
func (p *webPresenter) TimerText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer
}

// LastNotice returns the end-of-game notice, or nil.
func (p *webPresenter) LastNotice() *session.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

func (p *webPresenter) broadcast(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.events.Broadcast(sse.Message{Event: event, Data: string(data)})
}
