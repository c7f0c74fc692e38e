// README: Room Broker: per-order observer sets with ordered, best-effort fan-out.
package broker

import (
	"log/slog"
	"sort"
	"sync"

	"tracker/internal/types"
)

// Observer receives events for the rooms it joined. Deliver must not block
// for long; slow transports should queue and drop.
type Observer interface {
	ID() string
	Deliver(Event) error
}

type Broker struct {
	mu          sync.RWMutex
	rooms       map[types.ID]map[string]Observer
	memberships map[string]map[types.ID]struct{}
	logger      *slog.Logger
}

func New(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		rooms:       make(map[types.ID]map[string]Observer),
		memberships: make(map[string]map[types.ID]struct{}),
		logger:      logger.With("component", "broker"),
	}
}

// Join is idempotent.
func (b *Broker) Join(orderID types.ID, obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[orderID]
	if !ok {
		room = make(map[string]Observer)
		b.rooms[orderID] = room
	}
	room[obs.ID()] = obs

	m, ok := b.memberships[obs.ID()]
	if !ok {
		m = make(map[types.ID]struct{})
		b.memberships[obs.ID()] = m
	}
	m[orderID] = struct{}{}
}

// Leave removes obs from every room it joined.
func (b *Broker) Leave(obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for orderID := range b.memberships[obs.ID()] {
		b.removeLocked(orderID, obs.ID())
	}
	delete(b.memberships, obs.ID())
}

func (b *Broker) LeaveRoom(orderID types.ID, obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(orderID, obs.ID())
	if m, ok := b.memberships[obs.ID()]; ok {
		delete(m, orderID)
		if len(m) == 0 {
			delete(b.memberships, obs.ID())
		}
	}
}

func (b *Broker) removeLocked(orderID types.ID, obsID string) {
	room, ok := b.rooms[orderID]
	if !ok {
		return
	}
	delete(room, obsID)
	if len(room) == 0 {
		delete(b.rooms, orderID)
	}
}

// Publish delivers evt to every current member of the room and returns how
// many accepted it. Delivery happens outside the lock on a snapshot of the
// membership, so observers may leave concurrently.
func (b *Broker) Publish(orderID types.ID, evt Event) int {
	members := b.snapshot(orderID)

	delivered := 0
	for _, obs := range members {
		if err := obs.Deliver(evt); err != nil {
			b.logger.Warn("delivery failed",
				"order_id", orderID, "observer", obs.ID(), "event", evt.Type, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Broker) snapshot(orderID types.ID) []Observer {
	b.mu.RLock()
	defer b.mu.RUnlock()

	room := b.rooms[orderID]
	out := make([]Observer, 0, len(room))
	for _, obs := range room {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Members returns the observer ids in the room, sorted.
func (b *Broker) Members(orderID types.ID) []string {
	members := b.snapshot(orderID)
	ids := make([]string, len(members))
	for i, obs := range members {
		ids[i] = obs.ID()
	}
	return ids
}

// Rooms returns the ids of rooms that currently have members.
func (b *Broker) Rooms() []types.ID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.ID, 0, len(b.rooms))
	for id := range b.rooms {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
