// Package events carries pairing lifecycle notifications from the engine to
// whoever needs to react to them, either in-process or across instances via
// redis pub/sub.
package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindPaired   Kind = "paired"
	KindUnpaired Kind = "unpaired"
	KindRemoved  Kind = "removed"
	KindReset    Kind = "reset"
)

// Member is a participant referenced by an event.
type Member struct {
	ID     uint   `json:"id"`
	Handle string `json:"handle"`
}

type Event struct {
	Kind      Kind      `json:"kind"`
	PairingID uint      `json:"pairingId,omitempty"`
	Members   []Member  `json:"members,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
	Origin    string    `json:"origin,omitempty"`
}

// PartnerOf returns the other member of a two-member event.
func (e Event) PartnerOf(id uint) (Member, bool) {
	if len(e.Members) != 2 {
		return Member{}, false
	}
	switch id {
	case e.Members[0].ID:
		return e.Members[1], true
	case e.Members[1].ID:
		return e.Members[0], true
	}
	return Member{}, false
}

// Publisher hands events to the transport. Publish is called after the
// engine's transaction committed, so failures never undo state.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Sink consumes delivered events.
type Sink interface {
	Deliver(e Event)
}

// LocalPublisher delivers events synchronously to in-process sinks.
type LocalPublisher struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewLocalPublisher(sinks ...Sink) *LocalPublisher {
	return &LocalPublisher{sinks: sinks}
}

func (p *LocalPublisher) Attach(s Sink) {
	p.mu.Lock()
	p.sinks = append(p.sinks, s)
	p.mu.Unlock()
}

func (p *LocalPublisher) Publish(_ context.Context, e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.sinks {
		s.Deliver(e)
	}
	return nil
}
