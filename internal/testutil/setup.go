// Package testutil provides common testing utilities for the terrain
// packages: logger setup, fixtures and small polling helpers.
package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/VoidMesh/terrain/internal/logging"
)

// TestConfig holds configuration for test setup
type TestConfig struct {
	// EnableLogCapture routes log output to t.Log instead of discarding it
	EnableLogCapture bool
}

// DefaultTestConfig returns a default test configuration suitable for most tests
func DefaultTestConfig() *TestConfig {
	return &TestConfig{
		EnableLogCapture: false, // Disable by default for cleaner test output
	}
}

// SetupTest initializes the test environment with the provided configuration.
// The global logger is restored through t.Cleanup, after any cleanups the
// test registers later, so workers stopped there never race the restore.
//
// Usage:
//
//	func TestMyFunction(t *testing.T) {
//	    testutil.SetupTest(t, testutil.DefaultTestConfig())
//	    // ... test code
//	}
func SetupTest(t *testing.T, config *TestConfig) {
	t.Helper()

	originalLogger := logging.Logger
	if config.EnableLogCapture {
		testLogger := log.New(testWriter{t: t})
		testLogger.SetLevel(log.DebugLevel)
		logging.Logger = testLogger
	} else {
		logging.Logger = log.New(io.Discard)
	}

	t.Cleanup(func() {
		logging.Logger = originalLogger
	})
}

// testWriter adapts testing.T to implement io.Writer for log output
type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.t.Helper()
	tw.t.Log(string(p))
	return len(p), nil
}

// CreateTestContext creates a context that is cancelled when the test ends.
func CreateTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WaitFor polls cond every few milliseconds until it holds or timeout
// passes, and reports whether it held.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
