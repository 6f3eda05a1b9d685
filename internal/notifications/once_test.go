package notifications

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingClaimer struct{}

func (failingClaimer) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestOnce_DeliversOncePerEventAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &stubSink{name: "telegram"}
	replicaA := Once(inner, NewRedisClaimer(rdb))
	replicaB := Once(inner, NewRedisClaimer(rdb))
	ctx := context.Background()

	require.NoError(t, replicaA.Deliver(ctx, sampleEvent(1)))
	require.NoError(t, replicaB.Deliver(ctx, sampleEvent(1)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, "telegram", replicaB.Name())

	require.NoError(t, replicaB.Deliver(ctx, sampleEvent(2)))
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))

	assert.True(t, mr.Exists(ClaimKey("telegram", sampleEvent(1))))
	assert.Equal(t, claimTTL, mr.TTL(ClaimKey("telegram", sampleEvent(1))))
}

func TestOnce_ClaimFailureStillDelivers(t *testing.T) {
	inner := &stubSink{name: "email"}
	require.NoError(t, Once(inner, failingClaimer{}).Deliver(context.Background(), sampleEvent(3)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

func TestOnce_NilClaimerReturnsSink(t *testing.T) {
	inner := &stubSink{name: "email"}
	assert.Same(t, inner, Once(inner, nil))
}
