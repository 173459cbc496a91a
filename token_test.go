package mqttclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenWaitBlocksUntilComplete(t *testing.T) {
	tok := newToken(1)
	done := make(chan struct{})
	go func() {
		tok.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before complete was called")
	case <-time.After(20 * time.Millisecond):
	}

	tok.complete("ok", nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after complete")
	}
	assert.Equal(t, "ok", tok.Result())
	assert.NoError(t, tok.Error())
}

func TestTokenCompleteIsIdempotent(t *testing.T) {
	tok := newToken(1)
	tok.complete(nil, errors.New("first"))
	tok.complete(nil, errors.New("second"))
	assert.EqualError(t, tok.Error(), "first", "the first completion wins")
}

func TestTokenWaitTimeoutReportsWhichHappened(t *testing.T) {
	tok := newToken(1)
	assert.False(t, tok.WaitTimeout(10*time.Millisecond))
	tok.complete(nil, nil)
	assert.True(t, tok.WaitTimeout(time.Second))
}

func TestTokenStoreResolveRemovesFromPendingAndCompletesTheToken(t *testing.T) {
	s := newTokenStore()
	tok := s.new()
	assert.Contains(t, s.pending(), tok.id)

	s.resolve(tok.id, 7, nil)
	assert.NotContains(t, s.pending(), tok.id)
	assert.True(t, tok.WaitTimeout(time.Second))
	assert.Equal(t, 7, tok.Result())
}

func TestTokenStoreResolveOnUnknownIDIsANoop(t *testing.T) {
	s := newTokenStore()
	assert.NotPanics(t, func() { s.resolve(999, nil, nil) })
}

func TestTokenStoreFailAllCompletesEveryPendingTokenWithTheSameError(t *testing.T) {
	s := newTokenStore()
	a, b := s.new(), s.new()
	boom := errors.New("boom")

	s.failAll(boom)

	require.True(t, a.WaitTimeout(time.Second))
	require.True(t, b.WaitTimeout(time.Second))
	assert.ErrorIs(t, a.Error(), boom)
	assert.ErrorIs(t, b.Error(), boom)
	assert.Empty(t, s.pending())
}

func TestTokenIDIsNonEmptyAndDistinctPerToken(t *testing.T) {
	s := newTokenStore()
	a, b := s.new(), s.new()
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
