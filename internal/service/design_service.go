package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// DesignService manages user-owned designs.
type DesignService struct {
	designs repository.DesignRepository
	studio  repository.StudioProductRepository
	now     func() time.Time
}

func NewDesignService(designs repository.DesignRepository, studio repository.StudioProductRepository) *DesignService {
	return &DesignService{designs: designs, studio: studio, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a design owned by the actor. The studio product must exist.
func (s *DesignService) Create(ctx context.Context, actor Actor, d domain.Design) (*domain.Design, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if d.StudioProductID == "" {
		return nil, fmt.Errorf("%w: studio_product_id is required", ErrInvalidInput)
	}
	if _, err := s.studio.GetByID(ctx, d.StudioProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("studio product %s: %w", d.StudioProductID, err)
		}
		return nil, err
	}
	cp := d
	cp.ID = ""
	cp.OwnerID = actor.UserID
	cp.CreatedAt = s.now()
	if err := s.designs.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *DesignService) Get(ctx context.Context, actor Actor, id string) (*domain.Design, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	d, err := s.designs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(d.OwnerID) {
		return nil, fmt.Errorf("%w: design %s belongs to another user", ErrNotAuthorized, id)
	}
	return d, nil
}

func (s *DesignService) List(ctx context.Context, actor Actor) ([]domain.Design, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	return s.designs.ListByOwner(ctx, actor.UserID)
}

func (s *DesignService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.designs.Delete(ctx, id)
}
