package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/config"
)

func testConfig() *config.BreakerConfig {
	return &config.BreakerConfig{
		FailureThreshold:    3,
		OpenTimeout:         10 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := New[int]("test", testConfig())
	v, err := b.Execute(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := testConfig()
	b := New[int]("test", cfg)
	failing := func(context.Context) (int, error) { return 0, errors.New("boom") }

	for i := uint32(0); i < cfg.FailureThreshold; i++ {
		_, _ = b.Execute(context.Background(), failing)
	}

	_, err := b.Execute(context.Background(), func(context.Context) (int, error) {
		t.Fatal("fn should not be called while breaker is open")
		return 0, nil
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CategoryDependencyUnavailable, apperr.CategoryOf(err))
}

func TestBreakerRecoversAfterOpenTimeout(t *testing.T) {
	cfg := testConfig()
	b := New[int]("test", cfg)
	failing := func(context.Context) (int, error) { return 0, errors.New("boom") }

	for i := uint32(0); i < cfg.FailureThreshold; i++ {
		_, _ = b.Execute(context.Background(), failing)
	}

	time.Sleep(cfg.OpenTimeout + 5*time.Millisecond)

	v, err := b.Execute(context.Background(), func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBreakerResetForcesClosed(t *testing.T) {
	cfg := testConfig()
	b := New[int]("test", cfg)
	failing := func(context.Context) (int, error) { return 0, errors.New("boom") }

	for i := uint32(0); i < cfg.FailureThreshold; i++ {
		_, _ = b.Execute(context.Background(), failing)
	}
	_, err := b.Execute(context.Background(), func(context.Context) (int, error) { return 0, nil })
	require.Error(t, err)
	assert.Equal(t, apperr.CategoryDependencyUnavailable, apperr.CategoryOf(err))

	b.Reset()

	v, err := b.Execute(context.Background(), func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestBreakerSnapshot(t *testing.T) {
	cfg := testConfig()
	b := New[int]("test", cfg)
	failing := func(context.Context) (int, error) { return 0, errors.New("boom") }
	_, _ = b.Execute(context.Background(), failing)

	snap := b.Snapshot()
	assert.Equal(t, "test", snap.Name)
	assert.Equal(t, cfg.FailureThreshold, snap.FailureThreshold)
	assert.Equal(t, cfg.OpenTimeout, snap.OpenTimeout)
	assert.Equal(t, uint32(1), snap.Counts.ConsecutiveFailures)
	assert.False(t, snap.LastFailure.IsZero())

	for i := uint32(1); i < cfg.FailureThreshold; i++ {
		_, _ = b.Execute(context.Background(), failing)
	}
	assert.Equal(t, "open", b.Snapshot().State)

	b.Reset()
	assert.Equal(t, "closed", b.Snapshot().State)
	assert.Equal(t, uint32(0), b.Snapshot().Counts.ConsecutiveFailures)
}
