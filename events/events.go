/*Package events provides typed acquisition event delivery.

Handlers are invoked synchronously, in subscription order, on the
goroutine that publishes.  Subscriptions return a token that must be
used to unsubscribe on teardown; there is no implicit broadcast and no
reflection.
*/
package events

import "sync"

// Type discriminates event payloads.
type Type string

// Event types emitted by the acquisition layer.
const (
	ConfigLoaded     Type = "configLoaded"
	SnapTaken        Type = "snapTaken"
	LiveStarted      Type = "liveStarted"
	LiveStopped      Type = "liveStopped"
	SequenceStarted  Type = "sequenceStarted"
	FrameReady       Type = "frameReady"
	SequenceFinished Type = "sequenceFinished"
)

// Event is a typed notification with an optional payload.  Payload
// contents per type are documented where the events are published.
type Event struct {
	Type    Type
	Payload interface{}
}

// Handler consumes one event.
type Handler func(Event)

// Subscription identifies one registered handler for unsubscription.
type Subscription int

type registration struct {
	id Subscription
	fn Handler
}

// Bus dispatches events to subscribed handlers.  The zero value is
// ready to use.  Safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	next Subscription
	subs map[Type][]registration
}

// Subscribe registers fn for events of type t and returns the token
// used to remove it.  Handlers for the same type run in subscription
// order.
func (b *Bus) Subscribe(t Type, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = map[Type][]registration{}
	}
	b.next++
	b.subs[t] = append(b.subs[t], registration{id: b.next, fn: fn})
	return b.next
}

// Unsubscribe removes a previously registered handler.  Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, regs := range b.subs {
		for i, reg := range regs {
			if reg.id == s {
				b.subs[t] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every handler subscribed to its type,
// synchronously and in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	regs := append([]registration(nil), b.subs[e.Type]...)
	b.mu.Unlock()
	for _, reg := range regs {
		reg.fn(e)
	}
}
