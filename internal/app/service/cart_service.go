package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

var (
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrStockExceeded   = errors.New("requested quantity exceeds available stock")
	ErrProductNotFound = errors.New("product not found")
	ErrCartSyncFailed  = errors.New("failed to persist cart")
)

// CartIdentity names whose cart an operation targets: an authenticated
// user id, or the opaque token of a guest cart
type CartIdentity struct {
	UserID     uint
	GuestToken string
}

func (id CartIdentity) IsGuest() bool {
	return id.UserID == 0
}

func (id CartIdentity) lockKey() string {
	if id.IsGuest() {
		return "guest:" + id.GuestToken
	}
	return fmt.Sprintf("user:%d", id.UserID)
}

// CartLine is one cart entry joined with its current product record
type CartLine struct {
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
	Subtotal float64       `json:"subtotal"`
}

// Cart is the full cart view returned to the storefront
type Cart struct {
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}

type CartService interface {
	NewGuestToken() string
	GetCart(ctx context.Context, id CartIdentity) (*Cart, error)
	AddItem(ctx context.Context, id CartIdentity, productID uint) (*Cart, error)
	UpdateQuantity(ctx context.Context, id CartIdentity, productID uint, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, id CartIdentity, productID uint) (*Cart, error)
	Clear(ctx context.Context, id CartIdentity) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	guestRepo   repository.GuestCartRepository
	productRepo repository.ProductRepository

	// Mutations on the same cart are serialized so two tabs adding
	// the same product cannot interleave read-modify-write cycles
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewCartService(
	cartRepo repository.CartRepository,
	guestRepo repository.GuestCartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		guestRepo:   guestRepo,
		productRepo: productRepo,
		locks:       make(map[string]*sync.Mutex),
	}
}

// NewGuestToken mints the opaque token the storefront stores in a
// cookie to identify an anonymous visitor's cart
func (s *cartService) NewGuestToken() string {
	return uuid.NewString()
}

func (s *cartService) lockFor(id CartIdentity) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	key := id.lockKey()
	if mu, ok := s.locks[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	s.locks[key] = mu
	return mu
}

func (s *cartService) GetCart(ctx context.Context, id CartIdentity) (*Cart, error) {
	lines, err := s.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildCart(lines)
}

// AddItem puts one unit of the product into the cart. Adding to an
// existing line raises its quantity by one. A product with zero stock
// cannot enter the cart, and the resulting line quantity can never
// exceed the product's current stock.
func (s *cartService) AddItem(ctx context.Context, id CartIdentity, productID uint) (*Cart, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, err
	}

	if product.Stock == 0 {
		logger.Debug("Rejected add of out-of-stock product", map[string]interface{}{
			"product_id": productID,
		})
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	lines, err := s.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}

	current := 0
	for _, line := range lines {
		if line.ProductID == productID {
			current = line.Quantity
			break
		}
	}
	if current+1 > product.Stock {
		return nil, fmt.Errorf("%w: %s has %d in stock", ErrStockExceeded, product.Name, product.Stock)
	}

	if err := s.storeQuantity(ctx, id, lines, productID, current+1); err != nil {
		return nil, err
	}

	logger.Info("Cart item added", map[string]interface{}{
		"user_id":    id.UserID,
		"guest":      id.IsGuest(),
		"product_id": productID,
		"quantity":   current + 1,
	})

	return s.GetCart(ctx, id)
}

// UpdateQuantity sets a line's quantity outright. A quantity of zero
// or less removes the line.
func (s *cartService) UpdateQuantity(ctx context.Context, id CartIdentity, productID uint, quantity int) (*Cart, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if quantity <= 0 {
		if err := s.removeLine(ctx, id, productID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, id)
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return nil, err
	}

	if quantity > product.Stock {
		return nil, fmt.Errorf("%w: %s has %d in stock", ErrStockExceeded, product.Name, product.Stock)
	}

	lines, err := s.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.storeQuantity(ctx, id, lines, productID, quantity); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, id)
}

func (s *cartService) RemoveItem(ctx context.Context, id CartIdentity, productID uint) (*Cart, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if err := s.removeLine(ctx, id, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, id)
}

func (s *cartService) Clear(ctx context.Context, id CartIdentity) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if id.IsGuest() {
		if err := s.guestRepo.Delete(ctx, id.GuestToken); err != nil {
			return fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
		}
		return nil
	}
	return s.cartRepo.DeleteByUserID(id.UserID)
}

// loadLines reads the raw cart lines from whichever backend owns this
// identity
func (s *cartService) loadLines(ctx context.Context, id CartIdentity) ([]model.GuestCartLine, error) {
	if id.IsGuest() {
		return s.guestRepo.Get(ctx, id.GuestToken)
	}

	items, err := s.cartRepo.FindByUserID(id.UserID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.GuestCartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, model.GuestCartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

// storeQuantity writes a single line's new quantity. For guests the
// whole blob is rewritten; a failed write aborts the mutation so the
// stored cart and the served cart cannot diverge.
func (s *cartService) storeQuantity(ctx context.Context, id CartIdentity, lines []model.GuestCartLine, productID uint, quantity int) error {
	if id.IsGuest() {
		updated := false
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = quantity
				updated = true
				break
			}
		}
		if !updated {
			lines = append(lines, model.GuestCartLine{ProductID: productID, Quantity: quantity})
		}
		if err := s.guestRepo.Save(ctx, id.GuestToken, lines); err != nil {
			return fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
		}
		return nil
	}

	existing, err := s.cartRepo.FindByUserAndProduct(id.UserID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.cartRepo.Create(&model.CartItem{
				UserID:    id.UserID,
				ProductID: productID,
				Quantity:  quantity,
			})
		}
		return err
	}
	existing.Quantity = quantity
	return s.cartRepo.Update(existing)
}

func (s *cartService) removeLine(ctx context.Context, id CartIdentity, productID uint) error {
	if id.IsGuest() {
		lines, err := s.guestRepo.Get(ctx, id.GuestToken)
		if err != nil {
			return err
		}
		kept := make([]model.GuestCartLine, 0, len(lines))
		for _, line := range lines {
			if line.ProductID != productID {
				kept = append(kept, line)
			}
		}
		if err := s.guestRepo.Save(ctx, id.GuestToken, kept); err != nil {
			return fmt.Errorf("%w: %v", ErrCartSyncFailed, err)
		}
		return nil
	}

	item, err := s.cartRepo.FindByUserAndProduct(id.UserID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Removing an absent line is a no-op
			return nil
		}
		return err
	}
	return s.cartRepo.Delete(item.ID)
}

// buildCart joins cart lines with their current product records and
// computes totals. Lines whose product has since been deleted are
// dropped from the view.
func (s *cartService) buildCart(lines []model.GuestCartLine) (*Cart, error) {
	cart := &Cart{Items: []CartLine{}}
	if len(lines) == 0 {
		return cart, nil
	}

	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		subtotal := product.Price * float64(line.Quantity)
		cart.Items = append(cart.Items, CartLine{
			Product:  product,
			Quantity: line.Quantity,
			Subtotal: subtotal,
		})
		cart.TotalItems += line.Quantity
		cart.TotalPrice += subtotal
	}

	return cart, nil
}
