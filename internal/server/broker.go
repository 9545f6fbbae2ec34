package server

import (
	"encoding/json"
	"sync"
)

// SSEEvent is the payload published to feed subscribers.
type SSEEvent struct {
	Type       string `json:"type"`
	SpotID     string `json:"spotId,omitempty"`
	SpotName   string `json:"spotName,omitempty"`
	ActorName  string `json:"actorName,omitempty"`
	TotalFinds int    `json:"totalFinds,omitempty"`
}

// Broker is an in-process pub/sub for SSE events. The feed is global:
// every subscriber sees every find.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded SSE events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the subscriber set.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(event SSEEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
