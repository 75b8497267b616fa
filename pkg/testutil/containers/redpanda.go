//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

const redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.4"

// RedpandaContainer is a single-node Kafka-compatible broker.
type RedpandaContainer struct {
	Container testcontainers.Container
	Brokers   []string
}

func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, redpandaImage, tcredpanda.WithAutoCreateTopics())
	if err != nil {
		fail(t, nil, "start redpanda: %v", err)
	}
	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		fail(t, container, "redpanda seed broker: %v", err)
	}

	terminateOnCleanup(t, container)
	return &RedpandaContainer{Container: container, Brokers: []string{broker}}
}
