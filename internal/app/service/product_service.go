package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/app/repository"
	"github.com/quickshop/quickshop-backend/internal/realtime"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrSlugTaken        = errors.New("slug already in use")
	ErrInvalidProduct   = errors.New("invalid product input")
)

type CreateProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
	ImageURL    string  `json:"image_url"`
	CategoryID  uint    `json:"category_id" binding:"required"`
}

type UpdateProductInput struct {
	Name        *string  `json:"name"`
	Slug        *string  `json:"slug"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	ImageURL    *string  `json:"image_url"`
	CategoryID  *uint    `json:"category_id"`
}

type ProductService interface {
	ListProducts(filter repository.ProductFilter) ([]model.Product, int64, error)
	GetProduct(id uint) (*model.Product, error)
	GetProductBySlug(slug string) (*model.Product, error)
	ListCategories() ([]model.Category, error)
	CreateProduct(input CreateProductInput) (*model.Product, error)
	UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	publisher    realtime.Publisher
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	publisher realtime.Publisher,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

func (s *productService) ListProducts(filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.FindWithFilter(filter)
}

func (s *productService) GetProduct(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProductBySlug(slug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: slug %s", ErrProductNotFound, slug)
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) ListCategories() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *productService) CreateProduct(input CreateProductInput) (*model.Product, error) {
	if input.Name == "" || input.Price <= 0 || input.Stock < 0 {
		return nil, ErrInvalidProduct
	}

	if _, err := s.categoryRepo.FindByID(input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCategoryNotFound, input.CategoryID)
		}
		return nil, err
	}

	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}
	if _, err := s.productRepo.FindBySlug(slug); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	product := &model.Product{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		CategoryID:  input.CategoryID,
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	created, err := s.productRepo.FindByID(product.ID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(realtime.InsertEvent(*created))
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": created.ID,
		"slug":       created.Slug,
	})
	return created, nil
}

// UpdateProduct applies the changed fields and broadcasts a patch
// carrying exactly those fields, so subscribers can overlay the
// change without refetching the record
func (s *productService) UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, err
	}

	patch := realtime.ProductPatch{}
	changed := false

	if input.Name != nil && *input.Name != product.Name {
		product.Name = *input.Name
		patch.Name = input.Name
		changed = true
	}
	if input.Slug != nil && *input.Slug != product.Slug {
		if _, err := s.productRepo.FindBySlug(*input.Slug); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrSlugTaken, *input.Slug)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		product.Slug = *input.Slug
		patch.Slug = input.Slug
		changed = true
	}
	if input.Description != nil && *input.Description != product.Description {
		product.Description = *input.Description
		patch.Description = input.Description
		changed = true
	}
	if input.Price != nil && *input.Price != product.Price {
		if *input.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
		}
		product.Price = *input.Price
		patch.Price = input.Price
		changed = true
	}
	if input.Stock != nil && *input.Stock != product.Stock {
		if *input.Stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
		}
		product.Stock = *input.Stock
		patch.Stock = input.Stock
		changed = true
	}
	if input.ImageURL != nil && *input.ImageURL != product.ImageURL {
		product.ImageURL = *input.ImageURL
		patch.ImageURL = input.ImageURL
		changed = true
	}
	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if _, err := s.categoryRepo.FindByID(*input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: id %d", ErrCategoryNotFound, *input.CategoryID)
			}
			return nil, err
		}
		product.CategoryID = *input.CategoryID
		patch.CategoryID = input.CategoryID
		changed = true
	}

	if !changed {
		return product, nil
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(realtime.UpdateEvent(product.ID, patch))
	}

	return product, nil
}

func (s *productService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return err
	}

	if s.publisher != nil {
		s.publisher.Publish(realtime.DeleteEvent(id))
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a product name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
