// Package types defines the ledger documents, the LocalStore contract and the
// standard error values shared by every tally component.
//
// Three documents exist per install: the account document (active event
// ledger plus its archive), the wallet list and the product catalog. Entity
// methods never mutate a document visible to other callers; they return a
// complete new value the caller persists with LocalStore.Save.
package types
