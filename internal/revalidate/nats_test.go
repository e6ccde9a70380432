package revalidate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterAcrossInstances(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	subject := "pagebuilder.test.revalidate." + time.Now().Format("150405.000000")
	remoteCache := &fakeCache{}
	remote := New(remoteCache, nil, WithLogger(discard()))
	remoteB := NewBroadcaster(conn, subject, "instance-b", discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- remoteB.Listen(ctx, remote) }()
	time.Sleep(100 * time.Millisecond)

	local := New(&fakeCache{}, nil, WithLogger(discard()),
		WithPublisher(NewBroadcaster(conn, subject, "instance-a", discard())))
	out, err := local.Revalidate(ctx, Request{Slug: "/about"})
	require.NoError(t, err)
	assert.True(t, out.Broadcasted)

	assert.Eventually(t, func() bool {
		remoteCache.mu.Lock()
		defer remoteCache.mu.Unlock()
		return len(remoteCache.tags) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
