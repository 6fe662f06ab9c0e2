package types

// Wallet is a payee bucket, typically one vendor sharing the table. The
// wallet list is ordered; earlier wallets win attribution ties.
type Wallet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultWallets returns the wallets seeded into a fresh install.
func DefaultWallets() []Wallet {
	return []Wallet{
		{ID: "wallet_1", Name: "Me"},
		{ID: "wallet_2", Name: "Partner"},
		{ID: "wallet_3", Name: "Consignment"},
	}
}

// FindWallet returns the wallet with the given id.
func FindWallet(wallets []Wallet, id string) (Wallet, bool) {
	for _, w := range wallets {
		if w.ID == id {
			return w, true
		}
	}
	return Wallet{}, false
}

// WalletLabel returns the wallet name, or the id itself when the wallet no
// longer exists.
func WalletLabel(wallets []Wallet, id string) string {
	if w, ok := FindWallet(wallets, id); ok {
		return w.Name
	}
	return id
}
