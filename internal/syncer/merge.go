package syncer

import (
	"github.com/mesh-intelligence/tally/pkg/types"
)

// MergeProducts unions two catalogs, remote first. A local product is
// dropped when some remote product has the same name, price and tag list in
// the same order. Its id, wallet and image are not compared.
func MergeProducts(remote, local []types.Product) []types.Product {
	merged := make([]types.Product, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	seen := make(map[productKey]bool, len(remote))
	for _, p := range remote {
		seen[keyOf(p)] = true
	}
	for _, p := range local {
		if !seen[keyOf(p)] {
			merged = append(merged, p)
		}
	}
	return merged
}

type productKey struct {
	name  string
	price int64
	tags  string
}

func keyOf(p types.Product) productKey {
	return productKey{name: p.Name, price: p.Price, tags: p.TagKey()}
}
