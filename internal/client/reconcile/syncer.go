package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/logger"
)

// DefaultInterval is how often a connected client re-pulls its unread set.
const DefaultInterval = 30 * time.Second

// Source is the pull surface of the notification store, scoped to one user.
type Source interface {
	ListUnread(ctx context.Context) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context) (int, error)
}

// Syncer keeps an Inbox in step with the store.
type Syncer struct {
	inbox    *Inbox
	source   Source
	interval time.Duration
	logger   *slog.Logger

	pullMu sync.Mutex
	resync chan struct{}
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

func WithInterval(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSyncLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSyncer(inbox *Inbox, source Source, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		inbox:    inbox,
		source:   source,
		interval: DefaultInterval,
		logger:   slog.Default(),
		resync:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run pulls immediately, then on every tick and every Resync, until ctx ends.
// Failed pulls are logged; the next tick retries.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pullAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pullAndLog(ctx)
		case <-s.resync:
			s.pullAndLog(ctx)
		}
	}
}

// Resync requests a pull, typically after the live channel reconnected.
// It never blocks; requests made while one is queued collapse into it.
func (s *Syncer) Resync() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

func (s *Syncer) pullAndLog(ctx context.Context) {
	if err := s.Pull(ctx); err != nil && ctx.Err() == nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "notification pull failed", logger.Error(err))
	}
}

// Pull fetches the unread set, merges it and confirms reads that were made
// on provisional items.
func (s *Syncer) Pull(ctx context.Context) error {
	s.pullMu.Lock()
	defer s.pullMu.Unlock()

	ns, err := s.source.ListUnread(ctx)
	if err != nil {
		return fmt.Errorf("list unread: %w", err)
	}
	for _, id := range s.inbox.ApplyUnread(ns) {
		err := s.source.MarkRead(ctx, id)
		s.inbox.settleRead(id, err == nil)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "read confirmation failed",
				logger.NotificationID(id), logger.Error(err))
		}
	}
	return nil
}

// MarkRead marks one item read locally, then on the server. If the server
// refuses, the local change is reverted and the error returned.
func (s *Syncer) MarkRead(ctx context.Context, notificationID string) error {
	confirm, err := s.inbox.markRead(notificationID)
	if err != nil || !confirm {
		return err
	}
	err = s.source.MarkRead(ctx, notificationID)
	s.inbox.settleRead(notificationID, err == nil)
	if err != nil {
		return fmt.Errorf("mark %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead marks everything read locally, then on the server, reverting
// on failure.
func (s *Syncer) MarkAllRead(ctx context.Context) error {
	confirmed, provisional := s.inbox.markAllRead()
	_, err := s.source.MarkAllRead(ctx)
	s.inbox.settleAll(confirmed, provisional, err == nil)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}
