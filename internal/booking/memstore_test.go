package booking

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// memStore is an in-memory Store.  WithinTx holds a single mutex for the
// whole transaction, which is the writer lock LockSpace asks for.
type memStore struct {
	mu           sync.Mutex
	spaces       map[uint64]model.Space
	users        map[uint64]model.User
	reservations map[uint64]model.Reservation
	nextID       uint64

	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		spaces:       map[uint64]model.Space{},
		users:        map[uint64]model.User{},
		reservations: map[uint64]model.Reservation{},
		nextID:       1,
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, next := maps.Clone(m.reservations), m.nextID
	if err := fn(memTx{m}); err != nil {
		m.reservations, m.nextID = snapshot, next
		return err
	}
	return nil
}

func (m *memStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, notFound("reservation")
	}
	return m.withRelations(r), nil
}

func (m *memStore) ListReservations(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.reservations {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		out = append(out, m.withRelations(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) withRelations(r model.Reservation) model.Reservation {
	if sp, ok := m.spaces[r.SpaceID]; ok {
		r.Space = &sp
	}
	if u, ok := m.users[r.UserID]; ok {
		r.User = &u
	}
	return r
}

func (m *memStore) addSpace(sp model.Space) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[sp.ID] = sp
}

func (m *memStore) addUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) setQuota(userID uint64, limit uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.MaxSimultaneousReservations = &limit
	m.users[userID] = u
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

type memTx struct{ m *memStore }

func (t memTx) LockSpace(ctx context.Context, spaceID uint64) (model.Space, error) {
	sp, ok := t.m.spaces[spaceID]
	if !ok {
		return model.Space{}, notFound(fmt.Sprintf("space %d", spaceID))
	}
	return sp, nil
}

func (t memTx) GetUser(ctx context.Context, userID uint64) (model.User, error) {
	u, ok := t.m.users[userID]
	if !ok {
		return model.User{}, notFound(fmt.Sprintf("user %d", userID))
	}
	return u, nil
}

func (t memTx) GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	r, ok := t.m.reservations[id]
	if !ok {
		return model.Reservation{}, notFound(fmt.Sprintf("reservation %d", id))
	}
	return r, nil
}

func (t memTx) FindOverlapping(ctx context.Context, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range t.m.reservations {
		if r.SpaceID == spaceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t memTx) CountUserReservations(ctx context.Context, userID uint64, statuses []model.Status) (int, error) {
	n := 0
	for _, r := range t.m.reservations {
		if r.UserID != userID {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (t memTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	if t.m.insertErr != nil {
		return t.m.insertErr
	}
	r.ID = t.m.nextID
	t.m.nextID++
	stored := *r
	stored.Space, stored.User = nil, nil
	t.m.reservations[r.ID] = stored
	return nil
}

func (t memTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	if _, ok := t.m.reservations[r.ID]; !ok {
		return notFound("reservation")
	}
	stored := *r
	stored.Space, stored.User = nil, nil
	t.m.reservations[r.ID] = stored
	return nil
}

func (t memTx) DeleteReservation(ctx context.Context, id uint64) error {
	if _, ok := t.m.reservations[id]; !ok {
		return notFound("reservation")
	}
	delete(t.m.reservations, id)
	return nil
}
