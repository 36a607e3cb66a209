package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFiresPendingInOrder(t *testing.T) {
	var q Queue
	var got []string
	q.RequestFrame(func(float64) { got = append(got, "a") })
	q.RequestFrame(func(float64) { got = append(got, "b") })

	require.Equal(t, 2, q.Pending())
	assert.Equal(t, 2, q.Run(16))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Zero(t, q.Pending())
	assert.Zero(t, q.Run(32))
}

func TestCancelBeforeRun(t *testing.T) {
	var q Queue
	fired := false
	id := q.RequestFrame(func(float64) { fired = true })

	require.True(t, q.CancelFrame(id))
	require.False(t, q.CancelFrame(id))
	q.Run(16)
	assert.False(t, fired)
}

func TestRequestDuringRunWaitsForNextRun(t *testing.T) {
	var q Queue
	var stamps []float64
	var tick Callback
	tick = func(ts float64) {
		stamps = append(stamps, ts)
		q.RequestFrame(tick)
	}
	q.RequestFrame(tick)

	q.Run(1)
	q.Run(2)
	q.Run(3)
	assert.Equal(t, []float64{1, 2, 3}, stamps)
	assert.Equal(t, 1, q.Pending())
}

func TestCancelFromEarlierCallbackInSameRun(t *testing.T) {
	var q Queue
	fired := false
	var second ID
	q.RequestFrame(func(float64) { q.CancelFrame(second) })
	second = q.RequestFrame(func(float64) { fired = true })

	assert.Equal(t, 1, q.Run(16))
	assert.False(t, fired)
}

func TestCancelAfterFire(t *testing.T) {
	var q Queue
	id := q.RequestFrame(func(float64) {})
	q.Run(1)
	assert.False(t, q.CancelFrame(id))
}

func TestCancelInSameRun(t *testing.T) {
	var q Queue
	var first, second ID
	var results []bool
	first = q.RequestFrame(func(float64) {
		results = append(results, q.CancelFrame(first), q.CancelFrame(second), q.CancelFrame(second))
	})
	second = q.RequestFrame(func(float64) { t.Fatal("cancelled request fired") })

	assert.Equal(t, 1, q.Run(16))
	assert.Equal(t, []bool{false, true, false}, results)
	assert.False(t, q.CancelFrame(second))
	assert.Zero(t, q.Pending())
}
