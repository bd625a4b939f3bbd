package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gallery-live/internal/domain"
)

// Directory is an in-memory user and artwork registry.
type Directory struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	order    []string
	artworks map[string]domain.Artwork
}

func NewDirectory() *Directory {
	return &Directory{
		users:    make(map[string]domain.User),
		artworks: make(map[string]domain.Artwork),
	}
}

// SeedUsers adds or replaces users. Role queries return users in the order first seeded.
func (d *Directory) SeedUsers(users ...domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		if _, ok := d.users[u.UserID]; !ok {
			d.order = append(d.order, u.UserID)
		}
		d.users[u.UserID] = u
	}
}

// SeedArtworks adds or replaces artworks.
func (d *Directory) SeedArtworks(artworks ...domain.Artwork) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range artworks {
		d.artworks[a.ArtworkID] = a
	}
}

func (d *Directory) UserIDsByRole(_ context.Context, role string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for _, id := range d.order {
		if d.users[id].Role == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *Directory) ArtworkOwner(_ context.Context, artworkID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.artworks[artworkID]
	if !ok {
		return "", fmt.Errorf("artwork %s: %w", artworkID, domain.ErrNotFound)
	}
	return a.OwnerID, nil
}

// RecordArtwork stores the ownership carried by an upload event.
func (d *Directory) RecordArtwork(_ context.Context, a domain.Artwork) error {
	d.SeedArtworks(a)
	return nil
}
