package mqttclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwave/mqttclient/packet"
	"github.com/driftwave/mqttclient/store"
)

func TestNewOptionsDefaultsAreValid(t *testing.T) {
	opts := newOptions()
	assert.NoError(t, opts.validate())
	assert.Equal(t, packet.VERSION311, opts.Version)
	assert.True(t, opts.CleanStart)
}

func TestOptionsRejectsEmptyURL(t *testing.T) {
	opts := newOptions(WithURL(""))
	err := opts.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWithVersionAcceptsWireByteAndVersionStrings(t *testing.T) {
	assert.Equal(t, packet.VERSION500, newOptions(WithVersion("5.0")).Version)
	assert.Equal(t, packet.VERSION311, newOptions(WithVersion("3.1.1")).Version)
	assert.Equal(t, packet.VERSION310, newOptions(WithVersion("3.1")).Version)
	assert.Equal(t, packet.VERSION500, newOptions(WithVersion(packet.VERSION500)).Version)
}

func TestWithVersionPanicsOnUnrecognizedString(t *testing.T) {
	assert.Panics(t, func() { newOptions(WithVersion("9.9")) })
}

func TestKeepAliveMustFitTheProtocolsSixteenBitSecondsField(t *testing.T) {
	ok := newOptions(WithKeepAlive(65535 * time.Second))
	assert.NoError(t, ok.validate())

	tooLarge := newOptions(WithKeepAlive(65536 * time.Second))
	err := tooLarge.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	negative := newOptions(WithKeepAlive(-time.Second))
	assert.Error(t, negative.validate())
}

func TestRetryBoundsOrderingIsEnforced(t *testing.T) {
	opts := newOptions(WithRetryBounds(time.Minute, time.Second))
	err := opts.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPersistentSessionRequiresAStore(t *testing.T) {
	opts := newOptions()
	opts.Persistent = true
	err := opts.validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWithPersistentSessionImpliesCleanStartFalse(t *testing.T) {
	opts := newOptions(WithPersistentSession(fakeStore{}))
	assert.True(t, opts.Persistent)
	assert.False(t, opts.CleanStart)
	assert.NoError(t, opts.validate())
}

type fakeStore struct{}

func (fakeStore) Put(store.Key, []byte) error            { return nil }
func (fakeStore) Get(store.Key) ([]byte, error)           { return nil, nil }
func (fakeStore) Remove(store.Key) error                  { return nil }
func (fakeStore) Keys(string) ([]store.Key, error)        { return nil, nil }
