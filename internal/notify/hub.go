// Package notify pushes pairing events to connected participants over
// websockets so clients do not have to poll their status.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 5 * time.Second
	// outboxSize bounds how far a peer may fall behind before it is dropped.
	outboxSize = 16
)

// Message is what a participant's websocket receives.
type Message struct {
	Type          string `json:"type"`
	PairingID     uint   `json:"pairingId,omitempty"`
	PartnerHandle string `json:"partnerHandle,omitempty"`
	Actor         string `json:"actor,omitempty"`
}

// wsConn is the part of *websocket.Conn the writer needs.
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
	Close() error
}

type outbound struct {
	msg  Message
	last bool // close the connection once written
}

// peer owns one connection. Only its writer goroutine writes to conn, so a
// slow client never holds up Deliver.
type peer struct {
	conn   wsConn
	outbox chan outbound
	done   chan struct{}
	once   sync.Once
}

func newPeer(conn wsConn) *peer {
	return &peer{
		conn:   conn,
		outbox: make(chan outbound, outboxSize),
		done:   make(chan struct{}),
	}
}

// enqueue hands msg to the writer. It reports false when the peer is closed
// or its outbox is full.
func (p *peer) enqueue(out outbound) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.outbox <- out:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

func (h *Hub) writeLoop(participantID uint, p *peer) {
	for {
		select {
		case <-p.done:
			return
		case out := <-p.outbox:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(out.msg); err != nil {
				h.logger.Warn("failed to push event", zap.Uint("participant_id", participantID), zap.Error(err))
				h.drop(participantID, p)
				return
			}
			if out.last {
				p.close()
				return
			}
		}
	}
}

// Hub keeps one websocket per participant. A newer connection replaces the
// older one.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.Mutex
	peers map[uint]*peer
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		peers:    make(map[uint]*peer),
	}
}

// Serve upgrades the request and holds the connection until the client goes
// away. Incoming messages are discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, participantID uint) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Uint("participant_id", participantID), zap.Error(err))
		return
	}

	p := h.register(participantID, conn)
	h.logger.Debug("websocket connected", zap.Uint("participant_id", participantID))

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.drop(participantID, p)
			return
		}
	}
}

func (h *Hub) register(participantID uint, conn wsConn) *peer {
	p := newPeer(conn)
	h.mu.Lock()
	old := h.peers[participantID]
	h.peers[participantID] = p
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
	go h.writeLoop(participantID, p)
	return p
}

// Connected reports whether the participant has an open websocket.
func (h *Hub) Connected(participantID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.peers[participantID]
	return ok
}

// Deliver implements events.Sink. It only queues messages and never waits on
// a client.
func (h *Hub) Deliver(e events.Event) {
	switch e.Kind {
	case events.KindPaired:
		for _, m := range e.Members {
			msg := Message{Type: string(e.Kind), PairingID: e.PairingID, Actor: e.Actor}
			if partner, ok := e.PartnerOf(m.ID); ok {
				msg.PartnerHandle = partner.Handle
			}
			h.sendTo(m.ID, msg)
		}
	case events.KindUnpaired:
		for _, m := range e.Members {
			h.sendTo(m.ID, Message{Type: string(e.Kind), PairingID: e.PairingID, Actor: e.Actor})
		}
	case events.KindRemoved:
		for _, m := range e.Members {
			h.sendLast(m.ID, Message{Type: string(e.Kind)})
		}
	case events.KindReset:
		h.mu.Lock()
		ids := make([]uint, 0, len(h.peers))
		for id := range h.peers {
			ids = append(ids, id)
		}
		h.mu.Unlock()
		for _, id := range ids {
			h.sendLast(id, Message{Type: string(e.Kind)})
		}
	default:
		h.logger.Debug("ignoring event", zap.String("kind", string(e.Kind)))
	}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[uint]*peer)
	h.mu.Unlock()
	for _, p := range peers {
		p.close()
	}
}

func (h *Hub) sendTo(participantID uint, msg Message) {
	h.mu.Lock()
	p, ok := h.peers[participantID]
	h.mu.Unlock()
	if !ok {
		return
	}
	if !p.enqueue(outbound{msg: msg}) {
		h.logger.Warn("websocket outbox full, dropping peer", zap.Uint("participant_id", participantID))
		h.drop(participantID, p)
	}
}

// sendLast unregisters the participant right away and lets the writer close
// the connection after msg.
func (h *Hub) sendLast(participantID uint, msg Message) {
	h.mu.Lock()
	p, ok := h.peers[participantID]
	if ok {
		delete(h.peers, participantID)
	}
	h.mu.Unlock()
	if ok && !p.enqueue(outbound{msg: msg, last: true}) {
		p.close()
	}
}

// drop removes p only if it is still the participant's current connection.
func (h *Hub) drop(participantID uint, p *peer) {
	h.mu.Lock()
	if h.peers[participantID] == p {
		delete(h.peers, participantID)
	}
	h.mu.Unlock()
	p.close()
}
