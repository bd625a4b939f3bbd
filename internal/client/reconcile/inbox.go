package reconcile

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gallery-live/internal/domain"
)

// DefaultWindow bounds the created_at distance between a push and the stored
// record it is matched to.
const DefaultWindow = 2 * time.Minute

// State tells whether an item is backed by a stored record.
type State int

const (
	Provisional State = iota
	Confirmed
)

func (s State) String() string {
	if s == Confirmed {
		return "confirmed"
	}
	return "provisional"
}

// Item is one entry of the client's notification list. Provisional items
// carry a local id prefixed with "local-".
type Item struct {
	ID          string
	State       State
	Type        domain.NotificationType
	EntityID    string
	RecipientID string
	Message     string
	Title       string
	IsRead      bool
	CreatedAt   time.Time

	serverRead  bool
	pendingRead bool
	matched     bool
}

// Push is a live frame as read off the wire.
type Push struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// pushFields is the subset of every push payload the inbox needs.
type pushFields struct {
	ID          string    `json:"id"`
	ArtworkID   string    `json:"artworkId"`
	Title       string    `json:"title"`
	RecipientID string    `json:"recipientId"`
	CreatedAt   time.Time `json:"createdAt"`
}

var pushTypes = map[string]domain.NotificationType{
	domain.EventNewArtwork:        domain.TypeUpload,
	domain.EventArtworkApproved:   domain.TypeApproved,
	domain.EventArtworkRejected:   domain.TypeRejected,
	domain.EventExhibitionCreated: domain.TypeExhibitionCreated,
	domain.EventCommentAdded:      domain.TypeCommentAdded,
}

// Inbox is the merged notification state of one user. It is safe for
// concurrent use.
type Inbox struct {
	userID string
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	items map[string]*Item
	seq   int
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) InboxOption {
	return func(in *Inbox) {
		if d > 0 {
			in.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) InboxOption {
	return func(in *Inbox) { in.now = now }
}

func NewInbox(userID string, opts ...InboxOption) *Inbox {
	in := &Inbox{
		userID: userID,
		window: DefaultWindow,
		now:    time.Now,
		items:  make(map[string]*Item),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// ApplyPush records a live push as a provisional item. Control frames,
// advisory room pushes and pushes addressed to someone else are ignored;
// the stored record behind them, if any, arrives with the next pull.
func (in *Inbox) ApplyPush(p Push) (Item, bool) {
	typ, ok := pushTypes[p.Type]
	if !ok {
		return Item{}, false
	}
	var f pushFields
	if err := json.Unmarshal(p.Data, &f); err != nil || f.RecipientID != in.userID {
		return Item{}, false
	}
	entity := f.ID
	if typ == domain.TypeCommentAdded {
		entity = f.ArtworkID
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = p.SentAt
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.seq++
	it := &Item{
		ID:          "local-" + strconv.Itoa(in.seq),
		State:       Provisional,
		Type:        typ,
		EntityID:    entity,
		RecipientID: f.RecipientID,
		Title:       f.Title,
		CreatedAt:   created,
	}
	in.items[it.ID] = it
	return *it, true
}

// ApplyPull merges stored records. Records replace any provisional item they
// match. It returns the ids of records whose provisional twin was read
// locally; those reads still have to be confirmed with the server.
func (in *Inbox) ApplyPull(ns []domain.Notification) []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.merge(ns)
}

// ApplyUnread merges a complete unread pull. Confirmed items missing from it
// were read elsewhere. Provisional items older than the window that still
// match nothing are dropped for the same reason.
func (in *Inbox) ApplyUnread(ns []domain.Notification) []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	confirm := in.merge(ns)
	present := make(map[string]struct{}, len(ns))
	for _, n := range ns {
		present[n.ID] = struct{}{}
	}
	cutoff := in.now().Add(-in.window)
	for id, it := range in.items {
		if _, ok := present[id]; ok {
			continue
		}
		switch it.State {
		case Confirmed:
			it.serverRead = true
			it.IsRead = true
		case Provisional:
			if it.CreatedAt.Before(cutoff) {
				delete(in.items, id)
			}
		}
	}
	return confirm
}

func (in *Inbox) merge(ns []domain.Notification) []string {
	var confirm []string
	for _, n := range ns {
		if n.RecipientID != in.userID {
			continue
		}
		it, ok := in.items[n.ID]
		if !ok {
			it = &Item{ID: n.ID, State: Confirmed}
			in.items[n.ID] = it
		}
		if !it.matched {
			if twin := in.matchProvisional(n); twin != nil {
				delete(in.items, twin.ID)
				it.matched = true
				if twin.IsRead && !n.IsRead && !it.IsRead {
					it.IsRead = true
					it.pendingRead = true
					confirm = append(confirm, n.ID)
				}
			}
		}
		it.Type = n.Type
		it.EntityID = n.Entity()
		it.RecipientID = n.RecipientID
		it.Message = n.Message
		it.CreatedAt = n.CreatedAt
		it.serverRead = it.serverRead || n.IsRead
		switch {
		case it.serverRead:
			it.IsRead = true
		case it.pendingRead:
			// keep the optimistic read until the server answers
		default:
			it.IsRead = false
		}
	}
	return confirm
}

// matchProvisional returns the provisional item closest in time to n among
// those sharing its natural key, or nil.
func (in *Inbox) matchProvisional(n domain.Notification) *Item {
	var best *Item
	var bestDist time.Duration
	for _, it := range in.items {
		if it.State != Provisional || it.Type != n.Type || it.EntityID != n.Entity() || it.RecipientID != n.RecipientID {
			continue
		}
		d := it.CreatedAt.Sub(n.CreatedAt).Abs()
		if d > in.window {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = it, d
		}
	}
	return best
}

// Items returns a snapshot, newest first.
func (in *Inbox) Items() []Item {
	in.mu.Lock()
	out := make([]Item, 0, len(in.items))
	for _, it := range in.items {
		out = append(out, *it)
	}
	in.mu.Unlock()

	slices.SortFunc(out, func(a, b Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// UnreadCount counts items not read locally.
func (in *Inbox) UnreadCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for _, it := range in.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

// markRead flips an item to read. It reports whether the server has to be
// told, which is the case for confirmed items not yet read on the server.
func (in *Inbox) markRead(id string) (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	it, ok := in.items[id]
	if !ok {
		return false, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	if it.IsRead {
		return false, nil
	}
	it.IsRead = true
	if it.State == Provisional || it.serverRead {
		return false, nil
	}
	it.pendingRead = true
	return true, nil
}

// settleRead ends a pending confirmation. On failure the item falls back to
// what the server last reported.
func (in *Inbox) settleRead(id string, ok bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	it, found := in.items[id]
	if !found {
		return
	}
	it.pendingRead = false
	if ok {
		it.serverRead = true
		return
	}
	it.IsRead = it.serverRead
}

// markAllRead flips every item to read. It returns the confirmed ids that
// now await the server and the provisional ids that were flipped locally, so
// a failed confirmation can revert both.
func (in *Inbox) markAllRead() (confirmed, provisional []string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for id, it := range in.items {
		if it.IsRead {
			continue
		}
		it.IsRead = true
		if it.State == Confirmed {
			it.pendingRead = true
			confirmed = append(confirmed, id)
		} else {
			provisional = append(provisional, id)
		}
	}
	return confirmed, provisional
}

// settleAll ends a mark-all. On failure provisional items go back to unread
// so the next pull does not confirm a read the server refused.
func (in *Inbox) settleAll(confirmed, provisional []string, ok bool) {
	for _, id := range confirmed {
		in.settleRead(id, ok)
	}
	if ok {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, id := range provisional {
		if it, found := in.items[id]; found && it.State == Provisional {
			it.IsRead = false
		}
	}
}
