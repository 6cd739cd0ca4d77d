package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

type fakeReconciler struct {
	calls    atomic.Int32
	err      error
	deadline bool
}

func (f *fakeReconciler) RecomputeAll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	_, f.deadline = ctx.Deadline()
	return 3, f.err
}

func TestCronManager_RunReconcileNow(t *testing.T) {
	rec := &fakeReconciler{}
	m := NewCronManager(rec, "0 3 * * *", time.Minute, logger.Nop())

	n, err := m.RunReconcileNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, rec.deadline)

	rec.err = errors.New("db down")
	_, err = m.RunReconcileNow(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestCronManager_StartStop(t *testing.T) {
	m := NewCronManager(&fakeReconciler{}, "0 3 * * *", time.Minute, logger.Nop())
	require.NoError(t, m.Start())
	m.Stop()
}

func TestCronManager_InvalidSpec(t *testing.T) {
	m := NewCronManager(&fakeReconciler{}, "not a spec", time.Minute, logger.Nop())
	assert.Error(t, m.Start())
}
