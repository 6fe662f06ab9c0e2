//go:build mage

// Package main provides build targets for the tally project using Mage.
//
// Usage:
//
//	mage build          Compile the tally binary to bin/
//	mage test:all       Run every test
//	mage test:race      Run every test with the race detector
//	mage test:cover     Write coverage.out and print the total
//	mage test:golden    Regenerate report golden files
//	mage lint           Run golangci-lint
//	mage vet            Run go vet
//	mage clean          Remove build artifacts
//	mage install        Install tally to GOPATH/bin
package main

const (
	binGo      = "go"
	binaryName = "tally"
	binaryDir  = "bin"
	cmdDir     = "./cmd/tally"
	versionVar = "github.com/mesh-intelligence/tally/internal/cli.Version"
)
