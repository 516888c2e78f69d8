// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events is a small synchronous broadcast bus used for signalling
// between chat components that do not hold references to each other.
//
// Publish runs every handler of the topic on the caller's goroutine, in
// subscription order, before returning. Components on the Bubble Tea update
// loop therefore observe each other's state changes immediately.
package events

import (
	"sync"
	"time"
)

// Topic names a broadcast stream.
type Topic string

const (
	// TopicSessionInfo carries protocol.SessionInfo pushed by the server.
	TopicSessionInfo Topic = "session-info"
	// TopicChatError carries a user-visible error notice (string).
	TopicChatError Topic = "chat-error"
	// TopicUpdatePersona carries a requested persona state (bool).
	TopicUpdatePersona Topic = "update-persona"
)

// Event is one published value.
type Event struct {
	Topic   Topic
	Payload any
	Time    time.Time
}

// Handler receives events for a topic.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to topic subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current subscriber of topic and
// returns the number of handlers invoked. Handlers may publish or
// subscribe themselves; the subscriber list is snapshotted first.
func (b *Bus) Publish(topic Topic, payload any) int {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload, Time: time.Now()}
	for _, s := range subs {
		s.handler(ev)
	}
	return len(subs)
}

// Subscribers returns how many handlers are registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
