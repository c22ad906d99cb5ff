package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpointEventBareString(t *testing.T) {
	got, err := parseEndpointEvent([]byte("/messages"))
	require.NoError(t, err)
	assert.Equal(t, "/messages", got)
}

func TestParseEndpointEventJSONObject(t *testing.T) {
	got, err := parseEndpointEvent([]byte(`{"url":"/messages","last_event_id":"5"}`))
	require.NoError(t, err)
	assert.Equal(t, "/messages", got)
}

func TestParseEndpointEventJSONObjectMissingURL(t *testing.T) {
	_, err := parseEndpointEvent([]byte(`{"last_event_id":"5"}`))
	assert.Error(t, err)
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(1000, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
}

func TestNilRateLimiterNeverBlocks(t *testing.T) {
	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background()))
}
