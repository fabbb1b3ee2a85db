package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// CartLine is one raw line of an order request. Exactly one of ProductID and
// DesignID must be set.
type CartLine struct {
	ProductID string
	DesignID  string
	Quantity  int64
	Size      string
	Color     string
	Notes     string
}

// LineItemValidator resolves cart lines against the catalog. It only reads:
// a single bad line fails the whole cart before anything is written.
type LineItemValidator struct {
	products repository.ProductRepository
	studio   repository.StudioProductRepository
	designs  repository.DesignRepository
}

func NewLineItemValidator(products repository.ProductRepository, studio repository.StudioProductRepository, designs repository.DesignRepository) *LineItemValidator {
	return &LineItemValidator{products: products, studio: studio, designs: designs}
}

// Validate returns one priced line item per cart line. Unit prices come from
// the freshly loaded catalog records. The stock check here is advisory; the
// inventory committer re-checks atomically.
func (v *LineItemValidator) Validate(ctx context.Context, userID string, lines []CartLine) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(lines))
	requested := make(map[string]int64)
	for i, line := range lines {
		n := i + 1
		if line.Quantity < 1 || line.Quantity > domain.MaxLineQuantity {
			return nil, fmt.Errorf("%w: line %d: quantity must be between 1 and %d", ErrInvalidInput, n, domain.MaxLineQuantity)
		}
		ref, err := domain.NewItemRef(strings.TrimSpace(line.ProductID), strings.TrimSpace(line.DesignID))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, n, err)
		}
		item := domain.LineItem{
			Ref:      ref,
			Quantity: line.Quantity,
			Size:     strings.TrimSpace(line.Size),
			Color:    strings.TrimSpace(line.Color),
			Notes:    strings.TrimSpace(line.Notes),
		}
		switch r := ref.(type) {
		case domain.PhysicalRef:
			p, err := v.products.GetByID(ctx, r.ProductID)
			if err != nil {
				return nil, lineErr(n, "product", r.ProductID, err)
			}
			if requested[p.ID] > math.MaxInt64-line.Quantity {
				return nil, fmt.Errorf("%w: line %d: total quantity of product %s is too large", ErrInvalidInput, n, p.ID)
			}
			requested[p.ID] += line.Quantity
			if p.Stock < requested[p.ID] {
				return nil, fmt.Errorf("%w: line %d: product %s has %d left, %d requested",
					ErrInsufficientStock, n, p.ID, p.Stock, requested[p.ID])
			}
			item.Name = p.Name
			item.UnitPrice = p.Price
		case domain.CustomRef:
			d, err := v.designs.GetByID(ctx, r.DesignID)
			if err != nil {
				return nil, lineErr(n, "design", r.DesignID, err)
			}
			if d.OwnerID != userID {
				return nil, fmt.Errorf("%w: line %d: design %s belongs to another user", ErrNotAuthorized, n, d.ID)
			}
			base, err := v.studio.GetByID(ctx, d.StudioProductID)
			if err != nil {
				return nil, lineErr(n, "base product", d.StudioProductID, err)
			}
			if !base.Active {
				return nil, fmt.Errorf("line %d: base product %s is not active: %w", n, base.ID, repository.ErrNotFound)
			}
			item.Name = d.Name
			item.UnitPrice = base.Price
			item.Customization = designCustomization(d, base)
		}
		items = append(items, item)
	}
	return items, nil
}

func lineErr(n int, what, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
		return fmt.Errorf("line %d: %s %s: %w", n, what, id, err)
	}
	return err
}

func designCustomization(d *domain.Design, base *domain.StudioProduct) map[string]string {
	m := map[string]string{"base_product": base.ID}
	if base.Name != "" {
		m["base_product_name"] = base.Name
	}
	if d.ArtworkURL != "" {
		m["artwork_url"] = d.ArtworkURL
	}
	if d.Placement != "" {
		m["placement"] = d.Placement
	}
	return m
}
