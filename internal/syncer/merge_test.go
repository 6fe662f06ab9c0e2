package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/tally/pkg/types"
)

func TestMergeProducts(t *testing.T) {
	pouch := types.Product{ID: "r1", Name: "Pouch", Price: 1200, WalletID: "wallet_1", Tags: []string{"pouch", "bag"}}

	tests := []struct {
		name    string
		remote  []types.Product
		local   []types.Product
		wantIDs []string
	}{
		{
			name:    "same name price and tags collapse",
			remote:  []types.Product{pouch},
			local:   []types.Product{{ID: "l1", Name: "Pouch", Price: 1200, WalletID: "wallet_2", Tags: []string{"pouch", "bag"}}},
			wantIDs: []string{"r1"},
		},
		{
			name:    "tag order matters",
			remote:  []types.Product{pouch},
			local:   []types.Product{{ID: "l1", Name: "Pouch", Price: 1200, Tags: []string{"bag", "pouch"}}},
			wantIDs: []string{"r1", "l1"},
		},
		{
			name:    "price difference keeps both",
			remote:  []types.Product{pouch},
			local:   []types.Product{{ID: "l1", Name: "Pouch", Price: 1300, Tags: []string{"pouch", "bag"}}},
			wantIDs: []string{"r1", "l1"},
		},
		{
			name:    "image difference is ignored by the key",
			remote:  []types.Product{pouch},
			local:   []types.Product{{ID: "l1", Name: "Pouch", Price: 1200, Tags: []string{"pouch", "bag"}, ImageRef: "img/1.png"}},
			wantIDs: []string{"r1"},
		},
		{
			name:    "nil and empty tags match",
			remote:  []types.Product{{ID: "r1", Name: "Card", Price: 300}},
			local:   []types.Product{{ID: "l1", Name: "Card", Price: 300, Tags: []string{}}},
			wantIDs: []string{"r1"},
		},
		{
			name:    "remote duplicates survive",
			remote:  []types.Product{pouch, pouch},
			wantIDs: []string{"r1", "r1"},
		},
		{
			name:    "empty remote keeps local",
			local:   []types.Product{{ID: "l1", Name: "Box", Price: 900}},
			wantIDs: []string{"l1"},
		},
		{
			name:    "both empty",
			wantIDs: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeProducts(tt.remote, tt.local)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
