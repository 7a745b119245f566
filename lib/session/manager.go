// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parleyhq/parley/lib/adapter"
	"github.com/parleyhq/parley/lib/event"
	"github.com/parleyhq/parley/lib/sessionlog"
)

// subscriberBuffer is the event buffer per subscriber. A subscriber
// that falls this far behind starts losing events (the log stays
// complete; only live delivery drops).
const subscriberBuffer = 64

// Session is the durable metadata of one session, restored from the
// session_created record across restarts. Live adapter state is not
// part of it.
type Session struct {
	ID               string
	AdapterID        string
	WorkingDirectory string
	SystemPrompt     string
	AllowedTools     []string
	Status           adapter.Status
	CreatedAt        time.Time
}

// effective resolves the per-call system prompt and tool list: an
// override key that is present replaces the stored value for this call
// only; an absent key falls back to the stored value.
func (s *Session) effective(overrides *sessionlog.Overrides) (systemPrompt string, allowedTools []string) {
	systemPrompt = s.SystemPrompt
	allowedTools = s.AllowedTools
	if overrides == nil {
		return systemPrompt, allowedTools
	}
	if overrides.SystemPrompt != nil {
		systemPrompt = *overrides.SystemPrompt
	}
	if overrides.AllowedTools != nil {
		allowedTools = overrides.AllowedTools
	}
	return systemPrompt, allowedTools
}

// liveSession is the Manager's per-session state: durable metadata
// plus the lazily created adapter, its queue, and its subscribers. All
// fields are guarded by the Manager lock.
type liveSession struct {
	meta Session

	adapter adapter.Adapter
	started bool

	// busy is true from message dispatch until the adapter reports
	// idle. While busy, new messages queue instead of dispatching.
	busy bool

	queue messageQueue

	subscribers    map[int]chan event.Event
	nextSubscriber int

	// pumpDone is closed when the event pump goroutine exits. Nil when
	// no adapter has been started since the last stop.
	pumpDone chan struct{}
}

// Options configures a Manager.
type Options struct {
	// Registry resolves adapter ids to factories.
	Registry *adapter.Registry

	// Store is the session log store. The Manager is its sole writer.
	Store *sessionlog.Store

	// Namespace partitions this Manager's sessions in the store. Empty
	// means the store default.
	Namespace string

	// Logger receives persistence warnings and pump diagnostics. Nil
	// means a default stderr logger.
	Logger *slog.Logger
}

// CreateSessionOptions names the adapter and the stored session
// defaults.
type CreateSessionOptions struct {
	// Adapter is the registry id of the backend (e.g., "claude-code").
	Adapter string

	// WorkingDirectory is where the backend runs. Empty means the
	// current working directory.
	WorkingDirectory string

	// SystemPrompt is the stored default prompt. Recorded only when
	// non-empty.
	SystemPrompt string

	// AllowedTools is the stored default tool restriction. Recorded
	// only when non-empty.
	AllowedTools []string
}

// Manager is the orchestration root: it owns the session map, the
// per-session queues, and the single write handle on the store. Safe
// for concurrent use.
type Manager struct {
	registry  *adapter.Registry
	store     *sessionlog.Store
	namespace string
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*liveSession
	closed   bool
}

// NewManager builds a Manager and restores session metadata from the
// store: every log in the namespace whose first record is
// session_created contributes a Session. No adapters are started —
// they are created lazily on the next SendMessage.
func NewManager(options Options) (*Manager, error) {
	if options.Registry == nil {
		return nil, fmt.Errorf("session manager: registry is required")
	}
	if options.Store == nil {
		return nil, fmt.Errorf("session manager: store is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	manager := &Manager{
		registry:  options.Registry,
		store:     options.Store,
		namespace: options.Namespace,
		logger:    logger,
		sessions:  make(map[string]*liveSession),
	}
	if err := manager.restore(); err != nil {
		return nil, err
	}
	return manager, nil
}

// restore scans the namespace and rebuilds Session metadata from the
// session_created record of each log. Logs without a parseable
// session_created first record are skipped with a warning.
func (manager *Manager) restore() error {
	sessionIDs, err := manager.store.Sessions(manager.namespace)
	if err != nil {
		return fmt.Errorf("restoring sessions: %w", err)
	}

	for _, sessionID := range sessionIDs {
		records, err := manager.store.ReadRecords(sessionID, manager.namespace)
		if err != nil {
			manager.logger.Warn("skipping unreadable session log",
				"session_id", sessionID, "error", err)
			continue
		}
		if len(records) == 0 || records[0].Type != sessionlog.TypeSessionCreated {
			manager.logger.Warn("skipping session log without session_created record",
				"session_id", sessionID)
			continue
		}

		created := records[0]
		manager.sessions[sessionID] = &liveSession{
			meta: Session{
				ID:               sessionID,
				AdapterID:        created.Adapter,
				WorkingDirectory: created.WorkingDirectory,
				SystemPrompt:     created.SystemPrompt,
				AllowedTools:     created.AllowedTools,
				Status:           adapter.StatusIdle,
				CreatedAt:        created.Timestamp,
			},
		}
	}
	return nil
}

// CreateSession registers a new session and durably records its
// session_created entry before returning the new id. A persistence
// failure aborts creation.
func (manager *Manager) CreateSession(ctx context.Context, options CreateSessionOptions) (string, error) {
	if _, err := manager.registry.Resolve(options.Adapter); err != nil {
		return "", err
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.closed {
		return "", ErrManagerClosed
	}

	sessionID := uuid.NewString()
	record := sessionlog.NewSessionCreated(
		sessionID, options.Adapter, options.WorkingDirectory,
		options.SystemPrompt, options.AllowedTools)
	if err := manager.store.WriteRecord(sessionID, record, manager.namespace); err != nil {
		return "", &PersistenceError{Op: "session_created write", Err: err}
	}

	manager.sessions[sessionID] = &liveSession{
		meta: Session{
			ID:               sessionID,
			AdapterID:        options.Adapter,
			WorkingDirectory: options.WorkingDirectory,
			SystemPrompt:     options.SystemPrompt,
			AllowedTools:     options.AllowedTools,
			Status:           adapter.StatusIdle,
			CreatedAt:        record.Timestamp,
		},
	}
	return sessionID, nil
}

// SendMessage submits one user message to a session. The user_message
// record is persisted first; then the message either starts the
// adapter's first turn, dispatches into an idle adapter, or queues
// behind the turn in flight. The call returns once the message is
// accepted — turn progress arrives on the event stream.
func (manager *Manager) SendMessage(ctx context.Context, sessionID string, text string, overrides *sessionlog.Overrides) error {
	manager.mu.Lock()

	if manager.closed {
		manager.mu.Unlock()
		return ErrManagerClosed
	}
	live, exists := manager.sessions[sessionID]
	if !exists {
		manager.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	messageID := uuid.NewString()
	record := sessionlog.NewUserMessage(text, overrides)
	record.ID = messageID
	if err := manager.store.WriteRecord(sessionID, record, manager.namespace); err != nil {
		// Non-fatal for an established session; the message still goes
		// to the backend.
		manager.logger.Warn("user message not persisted",
			"session_id", sessionID, "error", err)
	}

	if live.adapter == nil {
		if err := manager.attachAdapterLocked(ctx, live); err != nil {
			manager.mu.Unlock()
			return err
		}
	}

	systemPrompt, allowedTools := live.meta.effective(overrides)

	if !live.started {
		err := live.adapter.Start(ctx, adapter.StartOptions{
			SystemPrompt:     systemPrompt,
			AllowedTools:     allowedTools,
			WorkingDirectory: live.meta.WorkingDirectory,
		})
		if err != nil {
			manager.mu.Unlock()
			return fmt.Errorf("starting adapter %q: %w", live.meta.AdapterID, err)
		}
		live.started = true
		live.pumpDone = make(chan struct{})
		go manager.pump(live, live.adapter.Events(), live.pumpDone)
	}

	if live.busy {
		live.queue.push(queuedMessage{
			id:        messageID,
			text:      text,
			overrides: overrides,
			queuedAt:  time.Now(),
		})
		manager.mu.Unlock()
		return nil
	}

	// Reserve the in-flight slot before releasing the lock so a
	// concurrent send queues instead of double-dispatching. The
	// dispatch itself happens unlocked: the pump needs the lock to
	// drain the adapter's channel, and an adapter whose Send emits
	// synchronously would otherwise wedge against a full buffer.
	live.busy = true
	instance := live.adapter
	manager.mu.Unlock()

	if err := instance.Send(ctx, adapter.Message{
		Text:         text,
		SystemPrompt: systemPrompt,
		AllowedTools: allowedTools,
	}); err != nil {
		manager.mu.Lock()
		live.busy = false
		manager.mu.Unlock()
		return fmt.Errorf("sending to adapter %q: %w", live.meta.AdapterID, err)
	}
	return nil
}

// attachAdapterLocked instantiates the session's adapter and probes
// availability. Called with the Manager lock held.
func (manager *Manager) attachAdapterLocked(ctx context.Context, live *liveSession) error {
	registration, err := manager.registry.Resolve(live.meta.AdapterID)
	if err != nil {
		return err
	}
	instance := registration.New()

	available, err := instance.IsAvailable(ctx)
	if err != nil {
		return fmt.Errorf("probing adapter %q: %w", live.meta.AdapterID, err)
	}
	if !available {
		return fmt.Errorf("%w: %s", ErrAdapterUnavailable, live.meta.AdapterID)
	}

	live.adapter = instance
	return nil
}

// pump consumes one adapter's event channel until it closes. Every
// event is filled, persisted, and fanned out in emission order; status
// transitions drive the queue.
func (manager *Manager) pump(live *liveSession, events <-chan event.Event, done chan struct{}) {
	defer close(done)

	for incoming := range events {
		incoming.Fill(time.Now())

		if err := manager.store.WriteRecord(live.meta.ID, sessionlog.FromEvent(incoming), manager.namespace); err != nil {
			manager.logger.Warn("event not persisted",
				"session_id", live.meta.ID, "event_type", incoming.Type, "error", err)
		}

		manager.mu.Lock()
		var dispatch *pendingDispatch
		if incoming.Type == event.TypeStatus && incoming.Status != nil {
			dispatch = manager.applyStatusLocked(live, incoming.Status.State)
		}
		for _, subscriber := range live.subscribers {
			select {
			case subscriber <- incoming:
			default:
				manager.logger.Warn("dropping event for slow subscriber",
					"session_id", live.meta.ID, "event_type", incoming.Type)
			}
		}
		manager.mu.Unlock()

		// Queued messages dispatch unlocked, same as SendMessage: the
		// adapter's synchronous emissions must be drainable here.
		if dispatch != nil {
			if err := dispatch.instance.Send(context.Background(), dispatch.message); err != nil {
				manager.logger.Error("queued message not delivered",
					"session_id", live.meta.ID, "message_id", dispatch.messageID, "error", err)
				manager.mu.Lock()
				live.busy = false
				manager.mu.Unlock()
			}
		}
	}

	// Channel closed: the adapter reached stopped. Release the live
	// state so a later SendMessage starts a fresh adapter.
	manager.mu.Lock()
	live.meta.Status = adapter.StatusStopped
	live.queue.clear()
	live.adapter = nil
	live.started = false
	live.busy = false
	for key, subscriber := range live.subscribers {
		close(subscriber)
		delete(live.subscribers, key)
	}
	manager.mu.Unlock()
}

// pendingDispatch is a queued message the pump must deliver after
// releasing the Manager lock.
type pendingDispatch struct {
	instance  adapter.Adapter
	message   adapter.Message
	messageID string
}

// applyStatusLocked records a status transition and, when the adapter
// comes back to idle with messages queued, reserves the in-flight slot
// and returns the head message for unlocked dispatch. Called with the
// Manager lock held from the pump.
func (manager *Manager) applyStatusLocked(live *liveSession, state string) *pendingDispatch {
	status, err := adapter.ParseStatus(state)
	if err != nil {
		manager.logger.Warn("ignoring unknown status event",
			"session_id", live.meta.ID, "state", state)
		return nil
	}
	live.meta.Status = status

	switch status {
	case adapter.StatusIdle:
		live.busy = false
		next, pending := live.queue.pop()
		if !pending || live.adapter == nil {
			return nil
		}
		systemPrompt, allowedTools := live.meta.effective(next.overrides)
		live.busy = true
		return &pendingDispatch{
			instance: live.adapter,
			message: adapter.Message{
				Text:         next.text,
				SystemPrompt: systemPrompt,
				AllowedTools: allowedTools,
			},
			messageID: next.id,
		}

	case adapter.StatusStopped:
		live.queue.clear()
	}
	return nil
}

// GetSessionInfo returns a copy of the session's metadata, or nil for
// an unknown id.
func (manager *Manager) GetSessionInfo(sessionID string) *Session {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	live, exists := manager.sessions[sessionID]
	if !exists {
		return nil
	}
	copied := live.meta
	copied.AllowedTools = append([]string(nil), live.meta.AllowedTools...)
	return &copied
}

// Sessions returns a metadata copy of every known session, sorted by
// id.
func (manager *Manager) Sessions() []Session {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	sessions := make([]Session, 0, len(manager.sessions))
	for _, live := range manager.sessions {
		copied := live.meta
		copied.AllowedTools = append([]string(nil), live.meta.AllowedTools...)
		sessions = append(sessions, copied)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

// Store exposes the session log store for independent reads (listing
// historical events). The Manager remains the sole writer.
func (manager *Manager) Store() *sessionlog.Store { return manager.store }

// Namespace returns the store namespace this Manager writes to.
func (manager *Manager) Namespace() string { return manager.namespace }

// Subscribe attaches a live event channel to a session. The returned
// cancel detaches and closes it; the channel is also closed when the
// session stops. Subscribing to an already-stopped session yields a
// closed channel immediately — the same end-of-stream a live
// subscriber observes at stop. A subscriber that does not keep up
// loses events.
func (manager *Manager) Subscribe(sessionID string) (<-chan event.Event, func(), error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	live, exists := manager.sessions[sessionID]
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if live.adapter == nil && live.meta.Status == adapter.StatusStopped {
		ended := make(chan event.Event)
		close(ended)
		return ended, func() {}, nil
	}

	if live.subscribers == nil {
		live.subscribers = make(map[int]chan event.Event)
	}
	key := live.nextSubscriber
	live.nextSubscriber++
	channel := make(chan event.Event, subscriberBuffer)
	live.subscribers[key] = channel

	cancel := func() {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		if subscriber, attached := live.subscribers[key]; attached {
			delete(live.subscribers, key)
			close(subscriber)
		}
	}
	return channel, cancel, nil
}

// StopSession requests graceful termination of a session's adapter and
// waits for its event pump to finish. Queued messages are discarded.
// Safe to call repeatedly; stopping a session with no live adapter
// only marks it stopped.
func (manager *Manager) StopSession(ctx context.Context, sessionID string) error {
	manager.mu.Lock()
	live, exists := manager.sessions[sessionID]
	if !exists {
		manager.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	instance := live.adapter
	pumpDone := live.pumpDone
	if instance == nil {
		live.meta.Status = adapter.StatusStopped
		live.queue.clear()
		manager.mu.Unlock()
		return nil
	}
	manager.mu.Unlock()

	if err := instance.Stop(ctx); err != nil {
		return fmt.Errorf("stopping session %s: %w", sessionID, err)
	}
	if pumpDone != nil {
		select {
		case <-pumpDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// PauseSession suspends a running session. ErrNotSupported when the
// adapter lacks pause support.
func (manager *Manager) PauseSession(ctx context.Context, sessionID string) error {
	instance, err := manager.liveAdapter(sessionID, func(features adapter.Features) bool {
		return features.PauseResume
	})
	if err != nil {
		return err
	}
	return instance.Pause(ctx)
}

// ResumeSession continues a paused session.
func (manager *Manager) ResumeSession(ctx context.Context, sessionID string) error {
	instance, err := manager.liveAdapter(sessionID, func(features adapter.Features) bool {
		return features.PauseResume
	})
	if err != nil {
		return err
	}
	return instance.Resume(ctx)
}

// liveAdapter looks up a session's live adapter and checks a
// capability. No live adapter means the operation has nothing to act
// on.
func (manager *Manager) liveAdapter(sessionID string, supported func(adapter.Features) bool) (adapter.Adapter, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	live, exists := manager.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if live.adapter == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, adapter.ErrInvalidState)
	}
	if !supported(live.adapter.Info().Features) {
		return nil, fmt.Errorf("adapter %q: %w", live.meta.AdapterID, adapter.ErrNotSupported)
	}
	return live.adapter, nil
}

// Close stops every live session concurrently, waits for their pumps,
// and closes the store. The Manager accepts no operations afterwards.
func (manager *Manager) Close(ctx context.Context) error {
	manager.mu.Lock()
	if manager.closed {
		manager.mu.Unlock()
		return nil
	}
	manager.closed = true

	var sessionIDs []string
	for sessionID, live := range manager.sessions {
		if live.adapter != nil {
			sessionIDs = append(sessionIDs, sessionID)
		}
	}
	manager.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, sessionID := range sessionIDs {
		group.Go(func() error {
			return manager.StopSession(groupCtx, sessionID)
		})
	}
	stopErr := group.Wait()

	if err := manager.store.Close(); err != nil {
		return err
	}
	return stopErr
}
