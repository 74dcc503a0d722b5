package blockingbridge

import (
	"context"
	"testing"
	"time"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestCallReturnsResult(t *testing.T) {
	got, err := Call(context.Background(), time.Second, "add", func() (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCallTimesOut(t *testing.T) {
	_, err := Call(context.Background(), 10*time.Millisecond, "slow op", func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Timeout))
}

func TestDispatchRunsThroughPool(t *testing.T) {
	b := New(2)
	defer b.Wait()

	err := b.Dispatch(context.Background(), time.Second, "quick op", func() error {
		return nil
	})
	assert.NoError(t, err)
}

func TestDispatchTimeout(t *testing.T) {
	b := New(1)
	defer b.Wait()

	err := b.Dispatch(context.Background(), 10*time.Millisecond, "slow op", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Timeout))
}
