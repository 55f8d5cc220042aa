package local

import (
	"context"
	"sync"
	"sync/atomic"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch chan *LocalMessage
}

// LocalPubSub is an in-process fan-out pub/sub. Slow subscribers lose
// messages instead of blocking the publisher.
type LocalPubSub struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	bufSize     int
	dropped     atomic.Int64
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &LocalPubSub{
		subscribers: make(map[string][]*subscriber),
		bufSize:     bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	// Held for the sends so a concurrent cancel cannot close a channel mid-send.
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, s := range ps.subscribers[channel] {
		select {
		case s.ch <- msg:
		default:
			ps.dropped.Add(1)
		}
	}
	return nil
}

// Dropped is the number of messages discarded because a subscriber buffer was full.
func (ps *LocalPubSub) Dropped() int64 { return ps.dropped.Load() }

// Subscribe returns a channel of messages for the given channels and a
// cancel function that unsubscribes and closes it.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscriber{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		ps.subscribers[c] = append(ps.subscribers[c], sub)
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, c := range channels {
				list := ps.subscribers[c]
				for j, s := range list {
					if s == sub {
						ps.subscribers[c] = append(list[:j:j], list[j+1:]...)
						break
					}
				}
				if len(ps.subscribers[c]) == 0 {
					delete(ps.subscribers, c)
				}
			}
			close(sub.ch)
		})
	}

	return sub.ch, cancel, nil
}
