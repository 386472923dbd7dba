package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type variantFinder interface {
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

// Service is the cart store used by the HTTP layer.
type Service struct {
	repo     *Repository
	variants variantFinder
	logg     *logger.Logger
}

func NewService(repo *Repository, variants variantFinder, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, variants: variants, logg: logg}, nil
}

// Get returns the shopper's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, shopper types.Shopper) (*View, error) {
	cart, err := s.repo.GetOrCreate(ctx, shopper)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return newView(cart, items), nil
}

// AddItem adds quantity units of the variant, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, shopper types.Shopper, variantID uuid.UUID, quantity int) (*ItemResult, error) {
	if quantity <= 0 {
		return nil, invalidQuantity(quantity)
	}
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_variant_id required")
	}

	variant, err := s.variants.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetOrCreate(ctx, shopper)
	if err != nil {
		return nil, err
	}

	item, created, err := s.repo.UpsertItem(ctx, &models.CartItem{
		CartID:           cart.ID,
		ProductVariantID: variant.ID,
		Quantity:         quantity,
		PriceSnapshot:    variant.Price,
		MRPSnapshot:      variant.MRP,
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cart_id":    cart.ID.String(),
		"variant_id": variant.ID.String(),
		"quantity":   item.Quantity,
		"merged":     !created,
	})
	s.logg.Debug(logCtx, "cart item added")

	return &ItemResult{Item: newItemView(*item), Created: created}, nil
}

// UpdateItem replaces the quantity of a line in the shopper's cart.
func (s *Service) UpdateItem(ctx context.Context, shopper types.Shopper, itemID uuid.UUID, quantity int) (*ItemView, error) {
	if quantity <= 0 {
		return nil, invalidQuantity(quantity)
	}
	cart, err := s.repo.GetOrCreate(ctx, shopper)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	view := newItemView(*item)
	return &view, nil
}

// RemoveItem deletes a line from the shopper's cart.
func (s *Service) RemoveItem(ctx context.Context, shopper types.Shopper, itemID uuid.UUID) error {
	cart, err := s.repo.GetOrCreate(ctx, shopper)
	if err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, cart.ID, itemID)
}

func invalidQuantity(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than zero").
		WithDetails(map[string]any{"quantity": quantity})
}
