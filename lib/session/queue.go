// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"time"

	"github.com/parleyhq/parley/lib/sessionlog"
)

// queuedMessage is one message waiting for the session's adapter to
// finish its current turn. It lives only in memory: the user_message
// record was already persisted at submission, but an undelivered queue
// does not survive a crash.
type queuedMessage struct {
	id        string
	text      string
	overrides *sessionlog.Overrides
	queuedAt  time.Time
}

// messageQueue is a per-session FIFO. The Manager is its only user, so
// it carries no locking of its own; callers hold the Manager lock.
type messageQueue struct {
	items []queuedMessage
}

// push appends a message to the tail.
func (q *messageQueue) push(message queuedMessage) {
	q.items = append(q.items, message)
}

// pop removes and returns the head message.
func (q *messageQueue) pop() (queuedMessage, bool) {
	if len(q.items) == 0 {
		return queuedMessage{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// clear discards all queued messages. Called when the session stops;
// discarded messages are never delivered.
func (q *messageQueue) clear() {
	q.items = nil
}

func (q *messageQueue) len() int { return len(q.items) }
