package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EventKind is the kind of a cache invalidation event.
type EventKind int

const (
	// EventUpdateGene invalidates one gene.
	EventUpdateGene EventKind = iota + 1
	// EventReset invalidates everything.
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventUpdateGene:
		return "update"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// Event is a cache invalidation event. GeneID is set for EventUpdateGene.
type Event struct {
	Kind   EventKind
	GeneID int
}

// UpdateGene returns the update event for one gene.
func UpdateGene(entrezGeneID int) Event {
	return Event{Kind: EventUpdateGene, GeneID: entrezGeneID}
}

// Reset returns the reset event.
func Reset() Event {
	return Event{Kind: EventReset}
}

func (e Event) String() string {
	if e.Kind == EventUpdateGene {
		return fmt.Sprintf("update(%d)", e.GeneID)
	}
	return e.Kind.String()
}

// Subscriber applies invalidation events to one cached kind.
type Subscriber interface {
	Apply(ctx context.Context, ev Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, ev Event) error

// Apply calls f.
func (f SubscriberFunc) Apply(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Hub fans invalidation events out to its subscribers in registration
// order. Publishes are serialized.
type Hub struct {
	mu   sync.Mutex
	subs []namedSubscriber
}

type namedSubscriber struct {
	name string
	sub  Subscriber
}

// Subscribe registers sub under name.
func (h *Hub) Subscribe(name string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, namedSubscriber{name: name, sub: sub})
}

// Subscribers returns the registered names in order.
func (h *Hub) Subscribers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.subs))
	for i, s := range h.subs {
		names[i] = s.name
	}
	return names
}

// Publish applies ev to every subscriber. A failing subscriber does not stop
// the others; the failures are joined into the returned error.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for _, s := range h.subs {
		if err := s.sub.Apply(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Command is a cache control command received over the sibling protocol.
type Command int

const (
	CommandUpdateGene Command = iota + 1
	CommandReset
	CommandEnable
	CommandDisable
	CommandStatus
)

// ErrUnknownCommand is returned by ParseCommand for unrecognized input.
var ErrUnknownCommand = errors.New("unknown cache command")

var commandNames = map[Command]string{
	CommandUpdateGene: "updateGene",
	CommandReset:      "reset",
	CommandEnable:     "enable",
	CommandDisable:    "disable",
	CommandStatus:     "getStatus",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand parses the wire name of a command, ignoring case.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	for c, name := range commandNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
