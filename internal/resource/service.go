package resource

import (
	"context"
	"strings"
	"unicode/utf8"
)

type CreateRequest struct {
	Name        string
	Type        string
	Description string
	Location    string
	Capacity    int
	// AvailableCount defaults to Capacity when nil.
	AvailableCount *int
	Status         string
}

type UpdateRequest struct {
	Name           *string
	Type           *string
	Description    *string
	Location       *string
	Capacity       *int
	AvailableCount *int
	Status         *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, id string) error
	Types(ctx context.Context) ([]string, error)
	Locations(ctx context.Context) ([]string, error)
	AdjustAvailability(ctx context.Context, id string, change int) (*Resource, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	res := &Resource{
		Name:        strings.TrimSpace(req.Name),
		Type:        strings.TrimSpace(req.Type),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Capacity:    req.Capacity,
		Status:      StatusAvailable,
	}
	res.AvailableCount = res.Capacity
	if req.AvailableCount != nil {
		res.AvailableCount = *req.AvailableCount
	}
	if req.Status != "" {
		st, err := ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		res.Status = st
	}

	if err := validate(res); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		res.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		res.Type = strings.TrimSpace(*req.Type)
	}
	if req.Description != nil {
		res.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		res.Location = strings.TrimSpace(*req.Location)
	}
	if req.Capacity != nil {
		res.Capacity = *req.Capacity
		// Shrinking capacity drags the available count down with it.
		if req.AvailableCount == nil && res.AvailableCount > res.Capacity {
			res.AvailableCount = res.Capacity
		}
	}
	if req.AvailableCount != nil {
		res.AvailableCount = *req.AvailableCount
	}
	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		res.Status = st
	}

	if err := validate(res); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) Types(ctx context.Context) ([]string, error) {
	return s.repo.Types(ctx)
}

func (s *service) Locations(ctx context.Context) ([]string, error) {
	return s.repo.Locations(ctx)
}

func (s *service) AdjustAvailability(ctx context.Context, id string, change int) (*Resource, error) {
	if change == 0 {
		return nil, ErrInvalidAdjustment
	}
	return s.repo.AdjustAvailability(ctx, id, change)
}

func validate(res *Resource) error {
	if n := utf8.RuneCountInString(res.Name); n < 2 || n > MaxNameLength {
		return ErrInvalidName
	}
	if n := utf8.RuneCountInString(res.Type); n < 2 || n > MaxTypeLength {
		return ErrInvalidType
	}
	if utf8.RuneCountInString(res.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(res.Location) > MaxLocationLength {
		return ErrLocationTooLong
	}
	if res.Capacity < 1 || res.Capacity > MaxCapacity {
		return ErrInvalidCapacity
	}
	if res.AvailableCount < 0 || res.AvailableCount > res.Capacity {
		return ErrInvalidAvailability
	}
	return nil
}
