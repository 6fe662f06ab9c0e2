package types

import (
	"encoding/json"
	"strings"
)

// MaxProductTags bounds the number of tags on a product.
const MaxProductTags = 3

// DefaultTags is the tag set used when none is configured.
var DefaultTags = []string{
	"pouch",
	"bag",
	"art",
	"furniture",
	"box",
	"acrylic-keychain",
	"glasses-case",
	"card-case",
	"wallet",
}

// Product is a catalog entry. WalletID may dangle after a wallet is deleted;
// displays fall back to the id.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	WalletID string   `json:"walletId"`
	Tags     []string `json:"tags,omitempty"`
	ImageRef string   `json:"imageRef,omitempty"`
}

// Validate checks the product against the catalog rules. A nil tagSet skips
// the membership check.
func (p Product) Validate(tagSet []string) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	if len(p.Tags) > MaxProductTags {
		return ErrTooManyTags
	}
	seen := make(map[string]bool, len(p.Tags))
	for _, tag := range p.Tags {
		if seen[tag] {
			return ErrInvalidTag
		}
		seen[tag] = true
		if tagSet != nil && !containsString(tagSet, tag) {
			return ErrInvalidTag
		}
	}
	return nil
}

// TagKey serializes the tag list in order. Two products with the same
// tags in a different order have different keys.
func (p Product) TagKey() string {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(data)
}

// HasTag reports whether the product carries tag.
func (p Product) HasTag(tag string) bool {
	return containsString(p.Tags, tag)
}

// FindProduct returns the product with the given id.
func FindProduct(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
