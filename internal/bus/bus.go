// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus provides the in-process publish/subscribe message bus that
// delivers opaque message buffers to the supervisory loop.
//
// Delivery is per-pipe FIFO: a pipe receives messages in the order they were
// published to it, one at a time. Identifiers are opaque numeric tokens
// configured externally; the bus attaches no meaning to them.
package bus

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MsgID is an opaque numeric message identifier.
type MsgID uint32

// Message is one inbound message buffer.
type Message struct {
	ID      MsgID
	Payload []byte

	// TraceID correlates a message across log lines. Assigned on publish
	// when empty.
	TraceID string

	// PublishedAt is stamped by the bus on publish.
	PublishedAt time.Time
}

var (
	// ErrTimeout is returned by Receive when no message arrives within the
	// timeout. This is the steady-state idle path, not a failure.
	ErrTimeout = errors.New("bus: receive timed out")

	// ErrClosed is returned for operations on a closed bus or pipe.
	ErrClosed = errors.New("bus: closed")

	// ErrPipeFull is returned by Publish when a subscribed pipe cannot
	// accept the message without blocking.
	ErrPipeFull = errors.New("bus: pipe full")
)

// Pipe is a bounded, named delivery queue. A component subscribes its pipe
// to the message IDs it wants and drains it with Receive.
type Pipe struct {
	name string
	ch   chan *Message

	mu     sync.Mutex
	closed bool
}

// Name returns the pipe name given at creation.
func (p *Pipe) Name() string { return p.name }

// Depth returns the number of messages currently queued.
func (p *Pipe) Depth() int { return len(p.ch) }

// Receive blocks until a message is available or the timeout elapses.
// It returns ErrTimeout on timeout and ErrClosed once the pipe is closed
// and drained.
func (p *Pipe) Receive(timeout time.Duration) (*Message, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case msg, ok := <-p.ch:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-t.C:
		return nil, ErrTimeout
	}
}

func (p *Pipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}

// Bus routes published messages to subscribed pipes.
type Bus struct {
	mu     sync.Mutex
	subs   map[MsgID][]*Pipe
	pipes  []*Pipe
	closed bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[MsgID][]*Pipe)}
}

// CreatePipe creates a bounded pipe with the given name and depth.
func (b *Bus) CreatePipe(name string, depth int) (*Pipe, error) {
	if depth <= 0 {
		return nil, errors.New("bus: pipe depth must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	p := &Pipe{name: name, ch: make(chan *Message, depth)}
	b.pipes = append(b.pipes, p)
	return p, nil
}

// Subscribe routes messages with the given ID to the pipe. Subscribing the
// same pipe to an ID twice is an error.
func (b *Bus) Subscribe(id MsgID, p *Pipe) error {
	if p == nil {
		return errors.New("bus: nil pipe")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs[id] {
		if sub == p {
			return errors.New("bus: duplicate subscription")
		}
	}
	b.subs[id] = append(b.subs[id], p)
	return nil
}

// Publish delivers msg to every pipe subscribed to its ID. Delivery never
// blocks; if any pipe is full the message is dropped for that pipe and
// ErrPipeFull is returned after the remaining pipes are tried. Publishing
// to an ID with no subscribers is not an error.
func (b *Bus) Publish(msg *Message) error {
	if msg == nil {
		return errors.New("bus: nil message")
	}
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}
	msg.PublishedAt = time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	var errFull error
	for _, p := range b.subs[msg.ID] {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			continue
		}
		select {
		case p.ch <- msg:
		default:
			errFull = ErrPipeFull
		}
		p.mu.Unlock()
	}
	return errFull
}

// Close closes the bus and all pipes created from it.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, p := range b.pipes {
		p.close()
	}
	return nil
}
