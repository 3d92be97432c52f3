package realtime

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
)

// Source is the read side of the message store a Stream watches
type Source interface {
	Find(ctx context.Context, q repository.Query) ([]models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
}

// Offer replaces whatever value is waiting in ch with v.
// ch must have capacity 1 and a single sender.
func Offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Stream keeps the result of one query current.
// It emits the full sorted result after the initial fetch and after every change.
type Stream struct {
	name   string
	query  repository.Query
	feed   *Feed
	source Source
	logger *slog.Logger

	updates chan []models.Message
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once

	current map[string]models.Message
}

// Watch opens a stream for q. The stream subscribes to feed before its
// initial fetch so no change between the two is lost. It stops when ctx is
// cancelled or Close is called.
func Watch(ctx context.Context, name string, feed *Feed, source Source, q repository.Query, logger *slog.Logger) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		name:    name,
		query:   q,
		feed:    feed,
		source:  source,
		logger:  logger,
		updates: make(chan []models.Message, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		current: make(map[string]models.Message),
	}

	sub := feed.Subscribe()
	go s.run(ctx, sub)
	return s
}

// Updates delivers the latest result. Only the newest value is kept for a slow reader.
// The channel is closed when the stream stops.
func (s *Stream) Updates() <-chan []models.Message {
	return s.updates
}

// Done is closed once the stream has stopped
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close stops the stream and waits for it to exit
func (s *Stream) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Stream) run(ctx context.Context, sub *Subscription) {
	defer close(s.done)
	defer close(s.updates)
	defer sub.Close()

	s.refetch(ctx)
	if ctx.Err() != nil {
		return
	}
	s.emit()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.C():
			ids, resync := sub.Drain()
			changed := false
			if resync {
				s.refetch(ctx)
				changed = true
			} else {
				for _, id := range ids {
					if s.apply(ctx, id) {
						changed = true
					}
				}
			}
			if ctx.Err() != nil {
				return
			}
			if changed {
				s.emit()
			}
		}
	}
}

// refetch replaces the current result with a fresh unordered fetch.
// On failure the last known result is kept.
func (s *Stream) refetch(ctx context.Context) {
	messages, err := s.source.Find(ctx, s.query.Unordered())
	if err != nil {
		if ctx.Err() == nil {
			s.logError("stream fetch failed", err)
		}
		return
	}

	next := make(map[string]models.Message, len(messages))
	for _, m := range messages {
		if s.query.Matches(&m) {
			next[m.ID] = m
		}
	}
	s.current = next
}

// apply re-reads one changed message and reports whether the result changed
func (s *Stream) apply(ctx context.Context, id string) bool {
	m, err := s.source.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return s.remove(id)
		}
		if ctx.Err() == nil {
			s.logError("stream re-read failed", err, slog.String("message_id", id))
		}
		return false
	}

	if !s.query.Matches(m) {
		return s.remove(id)
	}
	s.current[id] = *m
	return true
}

func (s *Stream) remove(id string) bool {
	if _, ok := s.current[id]; !ok {
		return false
	}
	delete(s.current, id)
	return true
}

func (s *Stream) emit() {
	out := make([]models.Message, 0, len(s.current))
	for _, m := range s.current {
		out = append(out, m)
	}
	models.SortByTimestampDesc(out)
	Offer(s.updates, out)
}

func (s *Stream) logError(msg string, err error, attrs ...any) {
	if s.logger == nil {
		return
	}
	args := append([]any{slog.String("stream", s.name), slog.String("error", err.Error())}, attrs...)
	s.logger.Warn(msg, args...)
}
