package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"linklock-be/internal/entities"
	"linklock-be/internal/linkerr"
	"linklock-be/internal/models"
)

// memRegistry is an in-memory LinkRepository that enforces the same
// key uniqueness and ownership semantics as the Postgres one.
type memRegistry struct {
	mu    sync.Mutex
	links map[string]*entities.Link // by id
}

func newMemRegistry() *memRegistry {
	return &memRegistry{links: make(map[string]*entities.Link)}
}

func (m *memRegistry) keyTakenLocked(key string) bool {
	for _, l := range m.links {
		for _, k := range l.ResolvableKeys() {
			if k == key {
				return true
			}
		}
	}
	return false
}

func (m *memRegistry) Create(ctx context.Context, link *entities.Link) (*entities.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range link.ResolvableKeys() {
		if m.keyTakenLocked(key) {
			return nil, linkerr.ErrDuplicateKey
		}
	}

	stored := *link
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	m.links[stored.ID] = &stored

	created := stored
	return &created, nil
}

func (m *memRegistry) FindByKey(ctx context.Context, key string) (*entities.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*entities.Link
	for _, l := range m.links {
		for _, k := range l.ResolvableKeys() {
			if k == key {
				matches = append(matches, l)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, linkerr.ErrNotFound
	case 1:
		found := *matches[0]
		return &found, nil
	default:
		return nil, linkerr.ErrRegistryCorrupt
	}
}

func (m *memRegistry) FindByID(ctx context.Context, id, userID string) (*entities.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return nil, linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return nil, linkerr.ErrForbidden
	}
	found := *l
	return &found, nil
}

func (m *memRegistry) GetByUserID(ctx context.Context, userID string) ([]*entities.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.Link
	for _, l := range m.links {
		if l.UserID == userID {
			found := *l
			out = append(out, &found)
		}
	}
	return out, nil
}

func (m *memRegistry) Delete(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return linkerr.ErrForbidden
	}
	delete(m.links, id)
	return nil
}

func (m *memRegistry) UpdateProtection(ctx context.Context, id, userID string, isProtected bool, passwordHash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return linkerr.ErrNotFound
	}
	if l.UserID != userID {
		return linkerr.ErrForbidden
	}
	if !isProtected {
		passwordHash = nil
	}
	l.IsProtected = isProtected
	l.PasswordHash = passwordHash
	return nil
}

func (m *memRegistry) KeyExists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keyTakenLocked(key), nil
}

// memClicks is an in-memory ClickRepository counting recorded events.
type memClicks struct {
	mu     sync.Mutex
	events []*entities.Click
}

func newMemClicks() *memClicks {
	return &memClicks{}
}

func (m *memClicks) Insert(ctx context.Context, click *entities.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *click
	stored.ID = uuid.NewString()
	m.events = append(m.events, &stored)
	return nil
}

func (m *memClicks) CountByLinkID(ctx context.Context, linkID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.events {
		if e.LinkID == linkID {
			n++
		}
	}
	return n, nil
}

func (m *memClicks) GetAnalytics(ctx context.Context, linkID string, hours int) ([]models.ClickBucket, error) {
	count, _ := m.CountByLinkID(ctx, linkID)
	if count == 0 {
		return nil, nil
	}
	return []models.ClickBucket{{Time: time.Now().UTC().Truncate(time.Hour), Count: count}}, nil
}

func (m *memClicks) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
