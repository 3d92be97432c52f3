package services

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
)

// SessionState is the lifecycle state of an InboxSession
type SessionState int32

const (
	StateIdle SessionState = iota
	StateStarting
	StateLive
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateLive:
		return "live"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// InboxService opens live inbox sessions
type InboxService struct {
	source   realtime.Source
	feed     *realtime.Feed
	messages *MessageService
	logger   *slog.Logger
}

// NewInboxService creates a new InboxService
func NewInboxService(source realtime.Source, feed *realtime.Feed, messages *MessageService, logger *slog.Logger) *InboxService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxService{
		source:   source,
		feed:     feed,
		messages: messages,
		logger:   logger,
	}
}

// GetUserInboxMessages opens a live session over the identity's direct and department messages.
// The session runs until ctx is cancelled or Close is called.
func (s *InboxService) GetUserInboxMessages(ctx context.Context, identity models.Identity) (*InboxSession, error) {
	if !identity.Valid() {
		return nil, apperrors.ErrAuthenticationRequired
	}

	ctx, cancel := context.WithCancel(ctx)
	session := &InboxSession{
		identity: identity,
		logger:   s.logger.With(slog.String("uid", identity.UID)),
		current:  []models.Message{},
		updates:  make(chan []models.Message, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateStarting,
	}

	session.streams = append(session.streams,
		realtime.Watch(ctx, "direct", s.feed, s.source, DirectQuery(identity), session.logger))
	if q, ok := DepartmentQuery(identity); ok {
		session.streams = append(session.streams,
			realtime.Watch(ctx, "department", s.feed, s.source, q, session.logger))
	}

	go session.run(ctx)
	return session, nil
}

// MarkAsRead marks a message read for the caller in ctx
func (s *InboxService) MarkAsRead(ctx context.Context, id string) error {
	return s.messages.MarkAsRead(ctx, id)
}

// InboxSession is a live merged inbox for one user
type InboxSession struct {
	identity models.Identity
	logger   *slog.Logger
	streams  []*realtime.Stream

	mu      sync.RWMutex
	state   SessionState
	current []models.Message

	updates chan []models.Message
	cancel  context.CancelFunc
	done    chan struct{}
}

// Identity returns the user the session belongs to
func (s *InboxSession) Identity() models.Identity {
	return s.identity
}

// State returns the current lifecycle state
func (s *InboxSession) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the most recently published inbox
func (s *InboxSession) Current() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.current))
	copy(out, s.current)
	return out
}

// Updates delivers each newly published inbox. A slow reader only sees the newest one.
// The channel is closed when the session stops.
func (s *InboxSession) Updates() <-chan []models.Message {
	return s.updates
}

// Done is closed once the session has stopped
func (s *InboxSession) Done() <-chan struct{} {
	return s.done
}

// Close stops both streams and resets the published inbox to empty. Safe to call more than once.
func (s *InboxSession) Close() {
	s.cancel()
	<-s.done
}

func (s *InboxSession) run(ctx context.Context) {
	defer s.stop()

	lists := make([][]models.Message, len(s.streams))
	received := make([]bool, len(s.streams))
	chans := make([]<-chan []models.Message, len(s.streams))
	for i, st := range s.streams {
		chans[i] = st.Updates()
	}

	// The department channel is nil for users without a department, which never fires
	var directCh, departmentCh <-chan []models.Message
	directCh = chans[0]
	if len(chans) > 1 {
		departmentCh = chans[1]
	}

	for {
		var (
			idx  int
			msgs []models.Message
			ok   bool
		)
		select {
		case <-ctx.Done():
			return
		case msgs, ok = <-directCh:
			idx = 0
		case msgs, ok = <-departmentCh:
			idx = 1
		}
		if !ok {
			return
		}

		lists[idx] = msgs
		received[idx] = true
		if !all(received) {
			continue
		}
		s.publish(MergeInbox(s.identity.UID, lists...))
	}
}

func (s *InboxSession) publish(merged []models.Message) {
	s.mu.Lock()
	if s.state == StateStarting {
		s.state = StateLive
		s.logger.Debug("inbox session live", slog.Int("messages", len(merged)))
	}
	s.current = merged
	s.mu.Unlock()

	realtime.Offer(s.updates, merged)
}

func (s *InboxSession) stop() {
	s.cancel()
	for _, st := range s.streams {
		st.Close()
	}

	s.mu.Lock()
	s.state = StateStopped
	s.current = []models.Message{}
	s.mu.Unlock()

	close(s.updates)
	close(s.done)
}

func all(flags []bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
