package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickshop/quickshop-backend/internal/app/model"
)

func TestGuestCartCodec_RoundTrip(t *testing.T) {
	lines := []model.GuestCartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 7, Quantity: 1},
	}

	data, err := EncodeGuestCart(lines)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"product_id":1,"quantity":2},{"product_id":7,"quantity":1}]}`, string(data))

	decoded, err := DecodeGuestCart(data)
	require.NoError(t, err)
	assert.Equal(t, lines, decoded)
}

func TestGuestCartCodec_EncodeNil(t *testing.T) {
	data, err := EncodeGuestCart(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(data))
}

func TestGuestCartCodec_DecodeDropsInvalidLines(t *testing.T) {
	blob := `{"items":[
		{"product_id":1,"quantity":2},
		{"product_id":0,"quantity":5},
		{"product_id":3,"quantity":0},
		{"product_id":4,"quantity":-1}
	]}`

	decoded, err := DecodeGuestCart([]byte(blob))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, uint(1), decoded[0].ProductID)
}

func TestGuestCartCodec_DecodeMalformed(t *testing.T) {
	_, err := DecodeGuestCart([]byte("not a blob"))
	assert.Error(t, err)
}

func TestGuestCartCodec_DecodeUnknownFieldsIgnored(t *testing.T) {
	blob := `{"items":[{"product_id":2,"quantity":1,"color":"red"}],"version":9}`

	decoded, err := DecodeGuestCart([]byte(blob))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, uint(2), decoded[0].ProductID)
}
