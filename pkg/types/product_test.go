package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		tagSet  []string
		wantErr error
	}{
		{name: "valid", product: Product{Name: "pouch S", Price: 1200, Tags: []string{"pouch"}}, tagSet: DefaultTags},
		{name: "blank name", product: Product{Name: "  ", Price: 1200}, wantErr: ErrInvalidName},
		{name: "zero price", product: Product{Name: "x", Price: 0}, wantErr: ErrInvalidPrice},
		{name: "negative price", product: Product{Name: "x", Price: -5}, wantErr: ErrInvalidPrice},
		{name: "four tags", product: Product{Name: "x", Price: 1, Tags: []string{"art", "box", "bag", "pouch"}}, wantErr: ErrTooManyTags},
		{name: "unknown tag", product: Product{Name: "x", Price: 1, Tags: []string{"spaceship"}}, tagSet: DefaultTags, wantErr: ErrInvalidTag},
		{name: "duplicate tag", product: Product{Name: "x", Price: 1, Tags: []string{"art", "art"}}, wantErr: ErrInvalidTag},
		{name: "nil tag set skips membership", product: Product{Name: "x", Price: 1, Tags: []string{"spaceship"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate(tt.tagSet)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProductTagKeyIsOrderSensitive(t *testing.T) {
	a := Product{Tags: []string{"art", "box"}}
	b := Product{Tags: []string{"box", "art"}}
	none := Product{}

	assert.Equal(t, `["art","box"]`, a.TagKey())
	assert.NotEqual(t, a.TagKey(), b.TagKey())
	assert.Equal(t, `[]`, none.TagKey())
	assert.Equal(t, none.TagKey(), Product{Tags: []string{}}.TagKey())
}

func TestWalletLabelFallsBackToID(t *testing.T) {
	assert.Equal(t, "Me", WalletLabel(DefaultWallets(), "wallet_1"))
	assert.Equal(t, "wallet_gone", WalletLabel(DefaultWallets(), "wallet_gone"))
}
