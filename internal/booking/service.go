package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nekogravitycat/campus-booking-backend/internal/resource"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

// DefaultLockWait bounds how long a writer waits for its resource.
const DefaultLockWait = 3 * time.Second

// Actor is the authenticated requester of an operation.
type Actor struct {
	UserID string
	Role   user.Role
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

type CreateRequest struct {
	ResourceID string
	StartTime  time.Time
	EndTime    time.Time
	Purpose    string
}

type UpdateRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	Purpose   *string
}

// ResourceLookup is the part of the resource module bookings depend on.
type ResourceLookup interface {
	GetByID(ctx context.Context, id string) (*resource.Resource, error)
}

type Service interface {
	// CheckConflicts lists active bookings of the resource overlapping iv.
	CheckConflicts(ctx context.Context, resourceID string, iv Interval, excludeBookingID string) ([]*Booking, error)
	// GetAvailability lists occupied slots of the resource intersecting window, ascending by start.
	GetAvailability(ctx context.Context, resourceID string, window Interval) ([]Slot, error)
	// FreeSlots lists the gaps between occupied slots inside window.
	FreeSlots(ctx context.Context, resourceID string, window Interval) ([]Interval, error)

	Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, actor Actor, id string) (*Booking, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Booking, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, status Status) (*Booking, error)
	Delete(ctx context.Context, actor Actor, id string) error

	// CompleteElapsed marks confirmed bookings that have ended as completed.
	CompleteElapsed(ctx context.Context) (int64, error)
}

type Option func(*service)

// WithClock overrides the source of "now" used for past-time checks.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLockWait(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *service) { s.log = log }
}

// WithLocker shares an in-process locker between services.
func WithLocker(l *Locker) Option {
	return func(s *service) { s.locker = l }
}

type service struct {
	repo      Repository
	resources ResourceLookup
	locker    *Locker
	lockWait  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewService(repo Repository, resources ResourceLookup, opts ...Option) Service {
	s := &service{
		repo:      repo,
		resources: resources,
		locker:    NewLocker(),
		lockWait:  DefaultLockWait,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) lookupResource(ctx context.Context, id string) (*resource.Resource, error) {
	res, err := s.resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return res, nil
}

// serialize runs fn while holding both the in-process lock and the database
// row lock for the resource. The total wait for both is bounded by lockWait.
func (s *service) serialize(ctx context.Context, resourceID string, fn func(Store) error) error {
	deadline := time.Now().Add(s.lockWait)

	unlock, err := s.locker.Lock(ctx, resourceID, s.lockWait)
	if err != nil {
		return err
	}
	defer unlock()

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ErrLockTimeout
	}
	return s.repo.WithResourceLock(ctx, resourceID, remaining, fn)
}

// checkFree rejects iv when any other active booking overlaps it.
func checkFree(ctx context.Context, st Store, resourceID string, iv Interval, excludeID string) error {
	conflicts, err := st.FindOverlapping(ctx, resourceID, iv, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// withConflicts attaches the blocking bookings to a conflict raised by the
// database constraint rather than by checkFree.
func (s *service) withConflicts(ctx context.Context, err error, resourceID string, iv Interval, excludeID string) error {
	var ce *ConflictError
	if !errors.Is(err, ErrTimeConflict) || errors.As(err, &ce) {
		return err
	}
	conflicts, findErr := s.repo.FindOverlapping(ctx, resourceID, iv, excludeID)
	if findErr != nil {
		return err
	}
	return &ConflictError{Conflicts: conflicts}
}

func validatePurpose(p string) (string, error) {
	p = strings.TrimSpace(p)
	if utf8.RuneCountInString(p) > MaxPurposeLength {
		return "", ErrPurposeTooLong
	}
	return p, nil
}

func (s *service) CheckConflicts(ctx context.Context, resourceID string, iv Interval, excludeBookingID string) ([]*Booking, error) {
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.lookupResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.repo.FindOverlapping(ctx, resourceID, iv, excludeBookingID)
}

func (s *service) GetAvailability(ctx context.Context, resourceID string, window Interval) ([]Slot, error) {
	bookings, err := s.CheckConflicts(ctx, resourceID, window, "")
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, len(bookings))
	for i, b := range bookings {
		slots[i] = Slot{Start: b.StartTime, End: b.EndTime, Status: b.Status}
	}
	return slots, nil
}

func (s *service) FreeSlots(ctx context.Context, resourceID string, window Interval) ([]Interval, error) {
	slots, err := s.GetAvailability(ctx, resourceID, window)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, len(slots))
	for i, sl := range slots {
		busy[i] = Interval{Start: sl.Start, End: sl.End}
	}
	return FreeSlots(window, busy), nil
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Booking, error) {
	iv := Interval{Start: req.StartTime, End: req.EndTime}
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if !iv.Start.After(s.now()) {
		return nil, ErrStartTimePast
	}
	purpose, err := validatePurpose(req.Purpose)
	if err != nil {
		return nil, err
	}

	res, err := s.lookupResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.Bookable() {
		return nil, ErrResourceUnavailable
	}
	// Capacity gates creation only; conflict queries never look at it.
	if res.AvailableCount <= 0 {
		return nil, ErrResourceFullyBooked
	}

	b := &Booking{
		ResourceID:   res.ID,
		ResourceName: res.Name,
		UserID:       actor.UserID,
		StartTime:    iv.Start,
		EndTime:      iv.End,
		Status:       StatusPending,
		Purpose:      purpose,
	}

	err = s.serialize(ctx, res.ID, func(st Store) error {
		if err := checkFree(ctx, st, res.ID, iv, ""); err != nil {
			return err
		}
		return st.Create(ctx, b)
	})
	if err != nil {
		return nil, s.withConflicts(ctx, err, res.ID, iv, "")
	}

	s.log.InfoContext(ctx, "booking created",
		"booking_id", b.ID, "resource_id", b.ResourceID, "user_id", b.UserID,
		"start", b.StartTime, "end", b.EndTime)
	return b, nil
}

func (s *service) GetByID(ctx context.Context, actor Actor, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID && !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor Actor, filter Filter) ([]*Booking, int, error) {
	// Non-staff only ever see their own bookings.
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, ErrInvalidTimeRange
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.UserID && !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}

	iv := b.Interval()
	if req.StartTime != nil {
		iv.Start = *req.StartTime
	}
	if req.EndTime != nil {
		iv.End = *req.EndTime
	}
	timeChanged := !iv.Equal(b.Interval())

	if timeChanged {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		if !iv.Start.After(s.now()) {
			return nil, ErrStartTimePast
		}
	}

	var purpose *string
	if req.Purpose != nil {
		p, err := validatePurpose(*req.Purpose)
		if err != nil {
			return nil, err
		}
		purpose = &p
	}

	if !timeChanged && purpose == nil {
		return b, nil
	}

	var updated *Booking
	err = s.serialize(ctx, b.ResourceID, func(st Store) error {
		cur, err := st.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Status.IsActive() {
			return ErrBookingClosed
		}
		if timeChanged {
			if err := checkFree(ctx, st, cur.ResourceID, iv, cur.ID); err != nil {
				return err
			}
			cur.StartTime, cur.EndTime = iv.Start, iv.End
		}
		if purpose != nil {
			cur.Purpose = *purpose
		}
		if err := st.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, s.withConflicts(ctx, err, b.ResourceID, iv, b.ID)
	}

	if timeChanged {
		s.log.InfoContext(ctx, "booking rescheduled",
			"booking_id", updated.ID, "resource_id", updated.ResourceID,
			"start", updated.StartTime, "end", updated.EndTime)
	}
	return updated, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, id string, status Status) (*Booking, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Owners may only withdraw their own request; staff drive the rest of the lifecycle.
	switch {
	case actor.IsStaff():
	case b.UserID == actor.UserID && status == StatusCancelled:
	default:
		return nil, ErrPermissionDenied
	}

	var (
		updated *Booking
		from    Status
	)
	err = s.serialize(ctx, b.ResourceID, func(st Store) error {
		cur, err := st.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(cur.Status, status) {
			return ErrInvalidTransition
		}
		from = cur.Status
		cur.Status = status
		if err := st.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "booking status changed",
		"booking_id", updated.ID, "resource_id", updated.ResourceID,
		"from", from, "to", updated.Status, "by", actor.UserID)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != actor.UserID && !actor.IsStaff() {
		return ErrPermissionDenied
	}

	err = s.serialize(ctx, b.ResourceID, func(st Store) error {
		return st.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "booking deleted", "booking_id", id, "resource_id", b.ResourceID, "by", actor.UserID)
	return nil
}

func (s *service) CompleteElapsed(ctx context.Context) (int64, error) {
	return s.repo.CompleteElapsed(ctx, s.now())
}
