package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

// CartSyncService reconciles a guest cart with a user's persisted cart
// at login. Quantities for the same product are summed with no stock
// cap; checkout re-validates against live stock. The guest blob is
// deleted once it has been folded in so a later login cannot
// double-merge it.
type CartSyncService interface {
	MergeGuestCart(ctx context.Context, userID uint, guestToken string) (*Cart, error)
}

type cartSyncService struct {
	cartRepo    repository.CartRepository
	guestRepo   repository.GuestCartRepository
	productRepo repository.ProductRepository
	cartService CartService
}

func NewCartSyncService(
	cartRepo repository.CartRepository,
	guestRepo repository.GuestCartRepository,
	productRepo repository.ProductRepository,
	cartService CartService,
) CartSyncService {
	return &cartSyncService{
		cartRepo:    cartRepo,
		guestRepo:   guestRepo,
		productRepo: productRepo,
		cartService: cartService,
	}
}

func (s *cartSyncService) MergeGuestCart(ctx context.Context, userID uint, guestToken string) (*Cart, error) {
	if guestToken == "" {
		return s.cartService.GetCart(ctx, CartIdentity{UserID: userID})
	}

	guestLines, err := s.guestRepo.Get(ctx, guestToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
	}

	if len(guestLines) == 0 {
		if err := s.guestRepo.Delete(ctx, guestToken); err != nil {
			logger.Warn("Failed to delete empty guest cart", map[string]interface{}{
				"token": guestToken,
				"error": err.Error(),
			})
		}
		return s.cartService.GetCart(ctx, CartIdentity{UserID: userID})
	}

	logger.Info("Merging guest cart into user cart", map[string]interface{}{
		"user_id":     userID,
		"guest_lines": len(guestLines),
	})

	ids := make([]uint, 0, len(guestLines))
	for _, line := range guestLines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
	}
	known := make(map[uint]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}

	for _, line := range guestLines {
		if !known[line.ProductID] {
			// Product removed from the catalog while the guest shopped
			continue
		}

		merged := line.Quantity
		existing, err := s.cartRepo.FindByUserAndProduct(userID, line.ProductID)
		switch {
		case err == nil:
			merged += existing.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = nil
		default:
			return nil, fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
		}

		if existing != nil {
			existing.Quantity = merged
			if err := s.cartRepo.Update(existing); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
			}
		} else {
			item := &model.CartItem{
				UserID:    userID,
				ProductID: line.ProductID,
				Quantity:  merged,
			}
			if err := s.cartRepo.Create(item); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
			}
		}
	}

	if err := s.guestRepo.Delete(ctx, guestToken); err != nil {
		// The merge itself succeeded; a leftover blob risks inflated
		// quantities on a later login, which checkout will catch
		logger.Warn("Failed to delete merged guest cart", map[string]interface{}{
			"token": guestToken,
			"error": err.Error(),
		})
	}

	return s.cartService.GetCart(ctx, CartIdentity{UserID: userID})
}
