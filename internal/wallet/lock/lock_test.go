package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/config"
	"github/chapool/go-gasless/internal/wallet/lock"
)

func TestMemorySerializesSameKey(t *testing.T) {
	l := lock.NewMemory()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := l.Lock(t.Context(), "k")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestMemoryDifferentKeysDoNotBlock(t *testing.T) {
	l := lock.NewMemory()

	unlockA, err := l.Lock(t.Context(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryHonoursContext(t *testing.T) {
	l := lock.NewMemory()

	unlock, err := l.Lock(t.Context(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, lock.ErrLockFailed)

	// double unlock is harmless
	unlock()
	unlock()

	unlock, err = l.Lock(t.Context(), "k")
	require.NoError(t, err)
	unlock()
	require.NoError(t, l.Close())
}

func TestKeys(t *testing.T) {
	token := common.HexToAddress("0xf9FB20B8E097904f0aB7d12e9DbeE88f2dcd0F16")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aA")
	spender := common.HexToAddress("0x00000000000000000000000000000000000000bB")

	assert.Equal(t,
		"permit:0xf9fb20b8e097904f0ab7d12e9dbee88f2dcd0f16:0x00000000000000000000000000000000000000aa:0x00000000000000000000000000000000000000bb",
		lock.PermitFlowKey(token, owner, spender))
	assert.NotEqual(t, lock.PermitFlowKey(token, owner, spender), lock.PermitFlowKey(token, spender, owner))
	assert.Equal(t, "account:0x00000000000000000000000000000000000000aa", lock.AccountKey(owner))
}

func TestNewSelectsBackend(t *testing.T) {
	l := lock.New(config.Lock{})
	unlock, err := l.Lock(t.Context(), "k")
	require.NoError(t, err)
	unlock()

	// nothing listens on port 1
	r := lock.New(config.Lock{RedisAddr: "127.0.0.1:1", Expiry: time.Second})
	defer r.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	_, err = r.Lock(ctx, "k")
	require.ErrorIs(t, err, lock.ErrLockFailed)
}
