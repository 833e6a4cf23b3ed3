package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// memRepo is an in-memory Repository. WithResourceLock does not serialize
// callers, so any mutual exclusion observed in tests comes from the service.
type memRepo struct {
	mu        sync.Mutex
	bookings  map[string]*Booking
	seq       int
	findCalls int

	lockErr error
	// beforeCreate runs ahead of every insert, outside the repository mutex.
	beforeCreate func(b *Booking) error
	// findDelay widens the window between the conflict check and the insert.
	findDelay time.Duration
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]*Booking)}
}

func clone(b *Booking) *Booking {
	c := *b
	return &c
}

func (r *memRepo) seed(b *Booking) *Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if b.ID == "" {
		b.ID = fmt.Sprintf("b-%03d", r.seq)
	}
	r.bookings[b.ID] = clone(b)
	return b
}

func (r *memRepo) active(resourceID string) []*Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if b.ResourceID == resourceID && b.Status.IsActive() {
			out = append(out, clone(b))
		}
	}
	return out
}

func (r *memRepo) FindOverlapping(ctx context.Context, resourceID string, iv Interval, excludeBookingID string) ([]*Booking, error) {
	r.mu.Lock()
	r.findCalls++
	var out []*Booking
	for _, b := range r.bookings {
		if b.ResourceID != resourceID || !b.Status.IsActive() || b.ID == excludeBookingID {
			continue
		}
		if b.Interval().Overlaps(iv) {
			out = append(out, clone(b))
		}
	}
	delay := r.findDelay
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b *Booking) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if delay > 0 {
		time.Sleep(delay)
	}
	return out, nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (r *memRepo) Create(ctx context.Context, b *Booking) error {
	if r.beforeCreate != nil {
		if err := r.beforeCreate(b); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = fmt.Sprintf("b-%03d", r.seq)
	b.CreatedAt = time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *memRepo) Update(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	r.bookings[b.ID] = clone(b)
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memRepo) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.ResourceID != "" && b.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		out = append(out, clone(b))
	}
	slices.SortFunc(out, func(a, b *Booking) int { return a.StartTime.Compare(b.StartTime) })
	return out, len(out), nil
}

func (r *memRepo) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.Status == StatusConfirmed && !b.EndTime.After(now) {
			b.Status = StatusCompleted
			n++
		}
	}
	return n, nil
}

func (r *memRepo) WithResourceLock(ctx context.Context, resourceID string, wait time.Duration, fn func(Store) error) error {
	r.mu.Lock()
	err := r.lockErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(r)
}
