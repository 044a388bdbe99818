package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/pkg/logger"
)

const guestCartKeyPrefix = "cart:guest:"

// GuestCartRepository stores carts for anonymous visitors as JSON
// blobs in Redis, keyed by the opaque cart token the storefront holds
// in a cookie. Blobs expire so abandoned guest carts clean themselves
// up.
type GuestCartRepository interface {
	Get(ctx context.Context, token string) ([]model.GuestCartLine, error)
	Save(ctx context.Context, token string, lines []model.GuestCartLine) error
	Delete(ctx context.Context, token string) error
}

type guestCartRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewGuestCartRepository(client *goredis.Client, ttl time.Duration) GuestCartRepository {
	return &guestCartRepository{client: client, ttl: ttl}
}

// guestCartBlob is the wire format of a stored guest cart
type guestCartBlob struct {
	Items []model.GuestCartLine `json:"items"`
}

// EncodeGuestCart serializes cart lines into the stored blob format
func EncodeGuestCart(lines []model.GuestCartLine) ([]byte, error) {
	if lines == nil {
		lines = []model.GuestCartLine{}
	}
	return json.Marshal(guestCartBlob{Items: lines})
}

// DecodeGuestCart parses a stored blob back into cart lines. Lines
// with a non-positive quantity or zero product id are dropped rather
// than failing the whole cart.
func DecodeGuestCart(data []byte) ([]model.GuestCartLine, error) {
	var blob guestCartBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("malformed guest cart blob: %w", err)
	}

	lines := make([]model.GuestCartLine, 0, len(blob.Items))
	for _, line := range blob.Items {
		if line.ProductID == 0 || line.Quantity <= 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func guestCartKey(token string) string {
	return guestCartKeyPrefix + token
}

func (r *guestCartRepository) Get(ctx context.Context, token string) ([]model.GuestCartLine, error) {
	data, err := r.client.Get(ctx, guestCartKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return []model.GuestCartLine{}, nil
		}
		logger.Error("Failed to load guest cart", err, map[string]interface{}{
			"token": token,
		})
		return nil, err
	}

	lines, err := DecodeGuestCart(data)
	if err != nil {
		// Corrupted blob: treat as an empty cart instead of locking
		// the visitor out of shopping
		logger.Warn("Discarding corrupted guest cart blob", map[string]interface{}{
			"token": token,
			"error": err.Error(),
		})
		return []model.GuestCartLine{}, nil
	}
	return lines, nil
}

func (r *guestCartRepository) Save(ctx context.Context, token string, lines []model.GuestCartLine) error {
	data, err := EncodeGuestCart(lines)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, guestCartKey(token), data, r.ttl).Err(); err != nil {
		logger.Error("Failed to save guest cart", err, map[string]interface{}{
			"token": token,
		})
		return err
	}
	return nil
}

func (r *guestCartRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, guestCartKey(token)).Err()
}
