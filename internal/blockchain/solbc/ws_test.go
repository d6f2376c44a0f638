package solbc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvContextReturnsValue(t *testing.T) {
	got, err := RecvContext(context.Background(), func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = RecvContext(context.Background(), func() (int, error) { return 0, errors.New("closed") })
	assert.EqualError(t, err, "closed")
}

func TestRecvContextStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := RecvContext(ctx, func() (string, error) {
		<-release
		return "", errors.New("unsubscribed")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
