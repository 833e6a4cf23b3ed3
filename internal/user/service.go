package user

import (
	"context"
	"strings"
)

// Service exposes read access to users plus seeding for the admin CLI.
type Service interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, req CreateRequest) (*User, error)
}

type CreateRequest struct {
	Email       string
	DisplayName string
	Role        string
	Department  string
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Role == "" {
		req.Role = string(RoleStudent)
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:       email,
		DisplayName: name,
		Role:        role,
		IsActive:    true,
	}
	if d := strings.TrimSpace(req.Department); d != "" {
		u.Department = &d
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
