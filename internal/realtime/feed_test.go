package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeed_PublishCoalesces(t *testing.T) {
	feed := NewFeed(0)
	sub := feed.Subscribe()
	defer sub.Close()

	feed.Publish("a", "b")
	feed.Publish("a")

	select {
	case <-sub.C():
	default:
		t.Fatal("expected a signal")
	}

	ids, resync := sub.Drain()
	assert.False(t, resync)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	ids, resync = sub.Drain()
	assert.Empty(t, ids)
	assert.False(t, resync)
}

func TestFeed_OverflowRequestsResync(t *testing.T) {
	feed := NewFeed(2)
	sub := feed.Subscribe()
	defer sub.Close()

	feed.Publish("a", "b", "c")

	ids, resync := sub.Drain()
	assert.True(t, resync)
	assert.Empty(t, ids)

	feed.Publish("d")
	ids, resync = sub.Drain()
	assert.False(t, resync)
	assert.Equal(t, []string{"d"}, ids)
}

func TestFeed_PublishNeverBlocks(t *testing.T) {
	feed := NewFeed(0)
	sub := feed.Subscribe()
	defer sub.Close()

	for i := 0; i < 100; i++ {
		feed.Publish("same")
	}

	ids, _ := sub.Drain()
	assert.Equal(t, []string{"same"}, ids)
}

func TestSubscription_Close(t *testing.T) {
	feed := NewFeed(0)
	sub := feed.Subscribe()
	assert.Equal(t, 1, feed.Subscribers())

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, feed.Subscribers())
	feed.Publish("a")
	ids, _ := sub.Drain()
	assert.Empty(t, ids)
}

func TestFeed_NilPublish(t *testing.T) {
	var feed *Feed
	assert.NotPanics(t, func() { feed.Publish("a") })
}
