package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the shopper's cart.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartLineDTO, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartLineDTO, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products func(tx *gorm.DB) productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: func(t *gorm.DB) productLoader { return product.NewRepository(t) },
	}, nil
}

var errItemNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")

func (s *service) List(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	return cartFromModels(items), nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartLineDTO, error) {
	if req.Quantity <= 0 {
		return nil, quantityError()
	}
	if req.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"product_id": "is required"})
	}

	var line CartLineDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		p, err := s.products(tx).FindByID(ctx, req.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !p.InStock() {
			return pkgerrors.Newf(pkgerrors.CodeOutOfStock, "%s is out of stock", p.Name).
				WithDetails(map[string]any{"product_id": p.ID})
		}
		if req.Quantity > p.InventoryCount {
			return insufficient(p.Name, p.ID, p.InventoryCount, req.Quantity)
		}

		repo := s.repo.WithTx(tx)
		if err := repo.AddQuantity(ctx, userID, p.ID, req.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		item, err := repo.FindByUserProduct(ctx, userID, p.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart item")
		}
		// Returning an error rolls the merge back, leaving the line as it was.
		if item.Quantity > item.Product.InventoryCount {
			return insufficient(item.Product.Name, item.ProductID, item.Product.InventoryCount, item.Quantity)
		}
		line = lineFromModel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartLineDTO, error) {
	if req.Quantity <= 0 {
		return nil, quantityError()
	}

	var line CartLineDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindForUser(ctx, itemID, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return errItemNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		if req.Quantity > item.Product.InventoryCount {
			return insufficient(item.Product.Name, item.ProductID, item.Product.InventoryCount, req.Quantity)
		}
		if err := repo.UpdateQuantity(ctx, itemID, userID, req.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		item, err = repo.FindForUser(ctx, itemID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart item")
		}
		line = lineFromModel(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.DeleteForUser(ctx, itemID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !deleted {
		return errItemNotFound
	}
	return nil
}

func quantityError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"quantity": "must be greater than 0"})
}

func insufficient(name string, productID uuid.UUID, available, requested int) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientInventory, "insufficient inventory for %s", name).
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  available,
			"requested":  requested,
		})
}
