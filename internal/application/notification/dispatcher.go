package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/id"
	"github.com/gallery-live/internal/pkg/logger"
	"github.com/gallery-live/internal/presence"
)

// Directory answers the audience questions the dispatcher cannot answer itself.
type Directory interface {
	UserIDsByRole(ctx context.Context, role string) ([]string, error)
	ArtworkOwner(ctx context.Context, artworkID string) (string, error)
}

// Pusher delivers a live event to the current members of a room.
// It is fire-and-forget: the return value is informational and never an error.
type Pusher interface {
	PushToRoom(room string, ev domain.Event) int
}

// Presence reports whether a user currently holds a live connection.
type Presence interface {
	IsOnline(userID string) bool
}

// OfflineNotifier forwards a stored notification to an out-of-band channel
// for recipients that were offline when it was dispatched.
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, n domain.Notification) error
}

// ThumbnailSigner turns an artwork thumbnail object key into a fetchable URL.
type ThumbnailSigner interface {
	SignThumbnail(ctx context.Context, key string) (string, error)
}

// ArtworkRecorder keeps the directory's ownership records in step with uploads.
type ArtworkRecorder interface {
	RecordArtwork(ctx context.Context, a domain.Artwork) error
}

// Result summarises one dispatch.
type Result struct {
	Recipients int `json:"recipients"`
	Stored     int `json:"stored"`
	Failed     int `json:"failed"`
	Pushed     int `json:"pushed"`   // per-recipient pushes accepted by a connection
	Advisory   int `json:"advisory"` // role/exhibition room pushes accepted by a connection
}

const (
	offlineNotifyTimeout = 5 * time.Second
	// defaultStoreTimeout bounds the store writes of one dispatch, which ignore
	// cancellation of the caller's context.
	defaultStoreTimeout = 30 * time.Second
)

// Dispatcher turns domain events into durable notifications and live pushes.
type Dispatcher struct {
	repo      Repository
	directory Directory
	pusher    Pusher
	presence  Presence
	offline   OfflineNotifier
	thumbs    ThumbnailSigner
	artworks  ArtworkRecorder
	logger    *slog.Logger
	wg        sync.WaitGroup

	storeTimeout time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOfflineNotifier enables out-of-band alerts for recipients without a live connection.
// Presence decides who is offline.
func WithOfflineNotifier(p Presence, n OfflineNotifier) DispatcherOption {
	return func(d *Dispatcher) {
		d.presence = p
		d.offline = n
	}
}

// WithThumbnailSigner signs thumbnail keys carried by upload events.
func WithThumbnailSigner(s ThumbnailSigner) DispatcherOption {
	return func(d *Dispatcher) {
		d.thumbs = s
	}
}

// WithArtworkRecorder records artwork ownership from upload events so later
// approval, rejection and comment events can be routed to the owner.
func WithArtworkRecorder(r ArtworkRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.artworks = r
	}
}

// WithStoreTimeout bounds the store writes of one dispatch.
func WithStoreTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.storeTimeout = d
		}
	}
}

// NewDispatcher wires the store, the audience directory and the push path.
func NewDispatcher(repo Repository, directory Directory, pusher Pusher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		repo:      repo,
		directory: directory,
		pusher:    pusher,
		logger:    slog.Default(),

		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// plan is the resolved fan-out of one domain event.
type plan struct {
	kind       domain.NotificationType
	recipients []string
	message    string
	entityID   string
	senderID   string
	eventName  string
	// payload builds the push body for one recipient; recipientID is empty for room broadcasts.
	payload  func(recipientID string, createdAt time.Time) any
	advisory []string
}

// Dispatch resolves the audience of ev, stores one notification per recipient
// and pushes each stored notification to the recipient's live connections.
// Store failures are returned wrapped in domain.ErrDurability; the affected
// recipients get no push. Push outcomes never produce errors.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.DomainEvent) (Result, error) {
	p, err := d.plan(ctx, ev)
	if err != nil {
		return Result{}, err
	}

	// Once the first record is written the fan-out runs to completion.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.storeTimeout)
	defer cancel()

	res := Result{Recipients: len(p.recipients)}
	var errs []error
	for _, rid := range p.recipients {
		nid, createdAt := id.NewAt()
		n := domain.Notification{
			ID:          nid,
			Type:        p.kind,
			Message:     p.message,
			EntityID:    optional(p.entityID),
			RecipientID: rid,
			SenderID:    optional(p.senderID),
			CreatedAt:   createdAt,
		}
		if err := d.repo.Put(storeCtx, &n); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("recipient %s: %w", rid, err))
			d.logger.LogAttrs(ctx, slog.LevelError, "notification store write failed, push skipped",
				logger.UserID(rid), logger.EventType(string(p.kind)), logger.Error(err))
			continue
		}
		res.Stored++

		delivered := d.pusher.PushToRoom(presence.UserRoom(rid), domain.NewEvent(p.eventName, p.payload(rid, createdAt)))
		res.Pushed += delivered
		if delivered == 0 {
			d.notifyOffline(ctx, n)
		}
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%w: %w", domain.ErrDurability, errors.Join(errs...))
	}

	if len(p.advisory) > 0 {
		body := p.payload("", time.Now().UTC())
		for _, room := range p.advisory {
			res.Advisory += d.pusher.PushToRoom(room, domain.NewEvent(p.eventName, body))
		}
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "domain event dispatched",
		logger.EventType(string(p.kind)),
		slog.Int("recipients", res.Recipients),
		slog.Int("stored", res.Stored),
		slog.Int("pushed", res.Pushed),
		slog.Int("advisory", res.Advisory),
	)
	return res, nil
}

func (d *Dispatcher) notifyOffline(ctx context.Context, n domain.Notification) {
	if d.offline == nil || d.presence == nil || d.presence.IsOnline(n.RecipientID) {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), offlineNotifyTimeout)
		defer cancel()
		if err := d.offline.NotifyOffline(octx, n); err != nil {
			d.logger.LogAttrs(octx, slog.LevelWarn, "offline alert failed",
				logger.NotificationID(n.ID), logger.UserID(n.RecipientID), logger.Error(err))
		}
	}()
}

// Wait blocks until in-flight offline alerts have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) plan(ctx context.Context, ev domain.DomainEvent) (*plan, error) {
	switch e := ev.(type) {
	case domain.ArtworkUploaded:
		return d.planUpload(ctx, e)
	case domain.ArtworkApproved:
		owner, err := d.owner(ctx, e.ArtworkID)
		if err != nil {
			return nil, err
		}
		return &plan{
			kind:       domain.TypeApproved,
			recipients: exclude([]string{owner}, e.CuratorID),
			message:    fmt.Sprintf("Your artwork %q was approved by %s", e.Title, e.CuratorName),
			entityID:   e.ArtworkID,
			senderID:   e.CuratorID,
			eventName:  domain.EventArtworkApproved,
			payload: func(rid string, at time.Time) any {
				return domain.ArtworkApprovedPayload{ID: e.ArtworkID, Title: e.Title, CuratorName: e.CuratorName, RecipientID: rid, CreatedAt: at}
			},
		}, nil
	case domain.ArtworkRejected:
		owner, err := d.owner(ctx, e.ArtworkID)
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Your artwork %q was rejected", e.Title)
		if e.Reason != nil && *e.Reason != "" {
			msg += ": " + *e.Reason
		}
		return &plan{
			kind:       domain.TypeRejected,
			recipients: exclude([]string{owner}, e.CuratorID),
			message:    msg,
			entityID:   e.ArtworkID,
			senderID:   e.CuratorID,
			eventName:  domain.EventArtworkRejected,
			payload: func(rid string, at time.Time) any {
				return domain.ArtworkRejectedPayload{ID: e.ArtworkID, Title: e.Title, Reason: e.Reason, RecipientID: rid, CreatedAt: at}
			},
		}, nil
	case domain.ExhibitionCreated:
		artists, err := d.usersByRoles(ctx, domain.RoleArtist)
		if err != nil {
			return nil, err
		}
		return &plan{
			kind:       domain.TypeExhibitionCreated,
			recipients: exclude(artists, e.CuratorID),
			message:    fmt.Sprintf("New exhibition %q opened by %s", e.Title, e.CuratorName),
			entityID:   e.ExhibitionID,
			senderID:   e.CuratorID,
			eventName:  domain.EventExhibitionCreated,
			payload: func(rid string, at time.Time) any {
				return domain.ExhibitionCreatedPayload{ID: e.ExhibitionID, Title: e.Title, CuratorName: e.CuratorName, RecipientID: rid, CreatedAt: at}
			},
			advisory: []string{presence.RoleRoom(domain.RoleArtist)},
		}, nil
	case domain.CommentAdded:
		owner, err := d.owner(ctx, e.ArtworkID)
		if err != nil {
			return nil, err
		}
		excerpt := truncate(e.Body, 120)
		p := &plan{
			kind:       domain.TypeCommentAdded,
			recipients: exclude([]string{owner}, e.AuthorID),
			message:    fmt.Sprintf("%s commented on your artwork: %s", e.AuthorName, excerpt),
			entityID:   e.ArtworkID,
			senderID:   e.AuthorID,
			eventName:  domain.EventCommentAdded,
			payload: func(rid string, at time.Time) any {
				return domain.CommentAddedPayload{
					ID: e.CommentID, ArtworkID: e.ArtworkID, ExhibitionID: e.ExhibitionID,
					AuthorID: e.AuthorID, AuthorName: e.AuthorName, Excerpt: excerpt,
					RecipientID: rid, CreatedAt: at,
				}
			},
		}
		if e.ExhibitionID != "" {
			p.advisory = []string{presence.ExhibitionRoom(e.ExhibitionID)}
		}
		return p, nil
	case nil:
		return nil, fmt.Errorf("nil domain event: %w", domain.ErrBadRequest)
	default:
		return nil, fmt.Errorf("unsupported domain event %T: %w", ev, domain.ErrBadRequest)
	}
}

func (d *Dispatcher) planUpload(ctx context.Context, e domain.ArtworkUploaded) (*plan, error) {
	if d.artworks != nil {
		err := d.artworks.RecordArtwork(ctx, domain.Artwork{ArtworkID: e.ArtworkID, OwnerID: e.ArtistID, Title: e.Title})
		if err != nil {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "artwork ownership not recorded",
				slog.String("artwork_id", e.ArtworkID), logger.Error(err))
		}
	}

	reviewers, err := d.usersByRoles(ctx, domain.PrivilegedRoles...)
	if err != nil {
		return nil, err
	}

	thumb := e.ThumbnailURL
	if e.ThumbnailKey != "" && d.thumbs != nil {
		if signed, err := d.thumbs.SignThumbnail(ctx, e.ThumbnailKey); err == nil {
			thumb = signed
		} else {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "thumbnail signing failed",
				slog.String("artwork_id", e.ArtworkID), logger.Error(err))
		}
	}

	advisory := make([]string, 0, len(domain.PrivilegedRoles))
	for _, r := range domain.PrivilegedRoles {
		advisory = append(advisory, presence.RoleRoom(r))
	}

	return &plan{
		kind:       domain.TypeUpload,
		recipients: exclude(reviewers, e.ArtistID),
		message:    fmt.Sprintf("%s uploaded a new artwork %q", e.ArtistName, e.Title),
		entityID:   e.ArtworkID,
		senderID:   e.ArtistID,
		eventName:  domain.EventNewArtwork,
		payload: func(rid string, at time.Time) any {
			return domain.NewArtworkPayload{
				ID: e.ArtworkID, Title: e.Title, Artist: e.ArtistName, ArtistID: e.ArtistID,
				ThumbnailURL: thumb, RecipientID: rid, CreatedAt: at,
			}
		},
		advisory: advisory,
	}, nil
}

func (d *Dispatcher) owner(ctx context.Context, artworkID string) (string, error) {
	owner, err := d.directory.ArtworkOwner(ctx, artworkID)
	if err != nil {
		return "", fmt.Errorf("resolve owner of artwork %s: %w", artworkID, err)
	}
	return owner, nil
}

// usersByRoles returns the union of users holding any of roles, in first-seen order.
func (d *Dispatcher) usersByRoles(ctx context.Context, roles ...string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range roles {
		ids, err := d.directory.UserIDsByRole(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", r, err)
		}
		for _, uid := range ids {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			out = append(out, uid)
		}
	}
	return out, nil
}

// exclude drops the event's own sender and empty ids.
func exclude(ids []string, sender string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(s string) bool {
		return s == "" || s == sender
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
