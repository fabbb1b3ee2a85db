package service

import (
	"context"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// StudioService manages base garments that designs are printed on.
type StudioService struct {
	repo repository.StudioProductRepository
}

func NewStudioService(repo repository.StudioProductRepository) *StudioService {
	return &StudioService{repo: repo}
}

func validateStudioProduct(sp domain.StudioProduct) error {
	if strings.TrimSpace(sp.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if sp.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *StudioService) Create(ctx context.Context, sp domain.StudioProduct) (*domain.StudioProduct, error) {
	if err := validateStudioProduct(sp); err != nil {
		return nil, err
	}
	cp := sp
	cp.Price = cp.Price.Round(2)
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *StudioService) GetByID(ctx context.Context, id string) (*domain.StudioProduct, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *StudioService) Update(ctx context.Context, sp domain.StudioProduct) (*domain.StudioProduct, error) {
	if sp.ID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateStudioProduct(sp); err != nil {
		return nil, err
	}
	cp := sp
	cp.Price = cp.Price.Round(2)
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *StudioService) List(ctx context.Context) ([]domain.StudioProduct, error) {
	return s.repo.List(ctx)
}
