// internal/sse/broadcaster.go
//
// Server-sent-event fan-out for live game views. Each subscriber gets a
// buffered channel; a frame to a subscriber with a full buffer is dropped
// so one stuck connection cannot stall the broadcast.

package sse

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event names pushed over the stream.
const (
	EventDeck   = "deck"
	EventCard   = "card"
	EventTimer  = "timer"
	EventNotice = "notice"
)

// Message is one SSE frame: an event name and a data payload (JSON text).
type Message struct {
	Event string
	Data  string
}

// Broadcaster fans messages out to all current subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Message]struct{}
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Message]struct{})}
}

// Subscribe registers a new subscriber channel.
func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch. The channel is deliberately not closed: a
// broadcast may still hold a reference, and readers exit via their request
// context instead.
func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Broadcast sends msg to every subscriber. Channels are collected under the
// read lock; sends happen without holding it and never block: a subscriber
// whose buffer is full misses the frame.
func (b *Broadcaster) Broadcast(msg Message) {
	b.mu.RLock()
	subs := make([]chan Message, 0, len(b.subs))
	for ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			log.Debug().Str("event", msg.Event).Msg("sse subscriber buffer full, frame dropped")
		}
	}
}

// Count reports the current subscriber count.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
