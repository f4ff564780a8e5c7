package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/pricing"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/pkg/errors"
)

type selectionResolver struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func newSelectionResolver(repos *repository.Repositories, logger *zap.Logger) *selectionResolver {
	return &selectionResolver{
		repos:  repos,
		logger: logger,
	}
}

type selectionKey struct {
	product uuid.UUID
	option  uuid.UUID
}

// Resolve loads the catalog rows behind a buyer's selections and checks that
// every product belongs to the event and every option to its product.
// The returned items keep the order of selections.
func (s *selectionResolver) Resolve(
	ctx context.Context,
	eventID uuid.UUID,
	selections []domain.Selection,
) ([]pricing.Item, error) {
	if len(selections) == 0 {
		return nil, errors.Validation("items", "select at least one product")
	}

	productIDs := make([]uuid.UUID, 0, len(selections))
	var optionIDs []uuid.UUID
	seen := make(map[selectionKey]bool, len(selections))
	for _, sel := range selections {
		if sel.Quantity < 1 {
			return nil, errors.Validation("quantity", "quantity must be at least 1")
		}
		key := selectionKey{product: sel.ProductID}
		if sel.OptionID != nil {
			key.option = *sel.OptionID
			optionIDs = append(optionIDs, *sel.OptionID)
		}
		if seen[key] {
			return nil, errors.Validation("items", fmt.Sprintf("product %s is selected twice", sel.ProductID))
		}
		seen[key] = true
		productIDs = append(productIDs, sel.ProductID)
	}

	products, err := s.repos.Product.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	options, err := s.repos.Option.GetByIDs(ctx, optionIDs)
	if err != nil {
		return nil, err
	}

	items := make([]pricing.Item, 0, len(selections))
	for _, sel := range selections {
		product, ok := products[sel.ProductID]
		if !ok || product.EventID != eventID {
			return nil, errors.Validation("items", fmt.Sprintf("product %s is not part of this event", sel.ProductID))
		}

		item := pricing.Item{Product: product, Quantity: sel.Quantity}
		if sel.OptionID != nil {
			option, ok := options[*sel.OptionID]
			if !ok || option.ProductID != product.ID {
				return nil, errors.Validation("option_id", fmt.Sprintf("option %s does not belong to product %s", *sel.OptionID, product.ID))
			}
			item.Option = option
		}
		items = append(items, item)
	}

	return items, nil
}
