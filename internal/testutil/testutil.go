// Package testutil provides shared test helpers for NetSeek packages.
package testutil

import (
	"testing"

	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/store"
)

// Logger returns a development Zap logger for use in tests.
// Panics on construction failure (should never happen in tests).
func Logger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic("testutil.Logger: " + err.Error())
	}
	return l
}

// NewStore creates an in-memory SQLite store, closed when the test ends.
func NewStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
