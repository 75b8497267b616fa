//go:build integration

// Package containers starts throwaway backing services for integration tests.
// Every container is terminated through t.Cleanup.
package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// fail terminates a half-started container before failing the test so a
// broken setup does not leak a running container.
func fail(t *testing.T, c testcontainers.Container, format string, args ...any) {
	t.Helper()
	if c != nil {
		_ = c.Terminate(context.Background())
	}
	t.Fatalf(format, args...)
}

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})
}
