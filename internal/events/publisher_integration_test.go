//go:build integration
// +build integration

package events

import (
	"context"
	"strconv"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vidsage/video-intelligence-go/internal/config"
)

func setupRabbitMQ(t *testing.T) config.RabbitMQConfig {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.RabbitMQConfig{
		Host:       host,
		Port:       portNum,
		User:       "guest",
		Password:   "guest",
		Exchange:   "video.intelligence.test",
		Queue:      "video.intelligence.test.events",
		RoutingKey: "pipeline.event",
	}
}

func TestPublishAndConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := setupRabbitMQ(t)

	publisher, err := NewPublisher(cfg)
	require.NoError(t, err)
	defer publisher.Close()
	assert.True(t, publisher.IsHealthy())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = publisher.Publish(ctx, TypeTranscriptExtracted, map[string]string{
		"video_id": "dQw4w9WgXcQ",
		"method":   "caption_api",
	})
	require.NoError(t, err)

	// Consume from the bound queue and check the envelope.
	conn, err := amqp.Dial(
		"amqp://guest:guest@" + cfg.Host + ":" + strconv.Itoa(cfg.Port) + "/")
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	deliveries, err := ch.Consume(cfg.Queue, "", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.Equal(t, TypeTranscriptExtracted, d.Type)
		assert.NotEmpty(t, d.MessageId)
		assert.Contains(t, string(d.Body), "dQw4w9WgXcQ")
	case <-time.After(10 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestNopPublisherWhenUnconfigured(t *testing.T) {
	publisher, err := NewPublisher(config.RabbitMQConfig{})
	require.NoError(t, err)

	assert.NoError(t, publisher.Publish(context.Background(), TypeChatAnswered, nil))
	assert.True(t, publisher.IsHealthy())
	assert.NoError(t, publisher.Close())
}
