package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/spillmem/api"
	"github.com/momentics/spillmem/buffer"
)

func TestMoveInplaceRoundTrip(t *testing.T) {
	opts, al, _ := newTestOpts()
	data := bytesSeq(128)
	b := newDeviceBuffer(t, opts, al, data)

	require.NoError(t, b.MoveInplace(api.HostResident))
	require.Equal(t, api.HostResident, b.Residency())
	require.Equal(t, 0, al.DeviceInUse())

	require.NoError(t, b.MoveInplace(api.DeviceResident))
	require.Equal(t, api.DeviceResident, b.Residency())

	got, err := b.AsHostView(0, 128)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestMoveInplaceNoOpKeepsLastAccessed(t *testing.T) {
	opts, al, _ := newTestOpts()
	b := newDeviceBuffer(t, opts, al, bytesSeq(16))
	before := b.LastAccessed()

	require.NoError(t, b.MoveInplace(api.DeviceResident))
	require.Equal(t, before, b.LastAccessed())
	// No copy happened either.
	require.Equal(t, 1, al.DeviceAllocs())
}

func TestMoveInplaceUnspillableWhenExposed(t *testing.T) {
	opts, al, _ := newTestOpts()
	data := bytesSeq(64)
	b := newDeviceBuffer(t, opts, al, data)
	_, err := b.Ptr()
	require.NoError(t, err)

	err = b.MoveInplace(api.HostResident)
	require.ErrorIs(t, err, api.ErrUnspillable)

	// Residency and contents are untouched.
	require.Equal(t, api.DeviceResident, b.Residency())
	got, err := b.AsHostView(0, 64)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestMoveInplaceUnspillableWhenPinned(t *testing.T) {
	opts, al, _ := newTestOpts()
	b := newDeviceBuffer(t, opts, al, bytesSeq(16))

	var pins buffer.PinList
	_, err := b.PtrWithPin(&pins)
	require.NoError(t, err)

	err = b.MoveInplace(api.HostResident)
	require.ErrorIs(t, err, api.ErrUnspillable)
	checkSpillableInvariant(t, b)

	// The violation reports the live pin count.
	var se *api.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, int64(1), se.Context["pins"])
	require.Equal(t, false, se.Context["exposed"])

	// Releasing the pin makes the buffer movable again.
	pins.Release()
	require.NoError(t, b.MoveInplace(api.HostResident))
	require.Equal(t, api.HostResident, b.Residency())
	checkSpillableInvariant(t, b)
}

func TestMoveInplaceUnsupportedTarget(t *testing.T) {
	opts, al, _ := newTestOpts()
	b := newDeviceBuffer(t, opts, al, bytesSeq(16))

	err := b.MoveInplace(api.Residency(7))
	require.ErrorIs(t, err, api.ErrUnsupportedTarget)
	require.Equal(t, api.DeviceResident, b.Residency())
}

func TestMoveInplaceAllocFailureLeavesStateIntact(t *testing.T) {
	opts, al, _ := newTestOpts()
	data := bytesSeq(32)
	b, err := buffer.New(opts, data, false)
	require.NoError(t, err)

	al.FailDeviceAfter = 0
	err = b.MoveInplace(api.DeviceResident)
	require.ErrorIs(t, err, api.ErrOutOfMemory)

	// No partial progress: still host-resident with intact bytes.
	require.Equal(t, api.HostResident, b.Residency())
	got, err := b.AsHostView(0, 32)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestTrySpillSkipsUnspillable(t *testing.T) {
	opts, al, _ := newTestOpts()
	b := newDeviceBuffer(t, opts, al, bytesSeq(16))
	_, err := b.Ptr()
	require.NoError(t, err)

	n, ok := b.TrySpill()
	require.False(t, ok)
	require.Zero(t, n)
	require.Equal(t, api.DeviceResident, b.Residency())
}

func TestTrySpillSpillsCleanBase(t *testing.T) {
	opts, al, _ := newTestOpts()
	b := newDeviceBuffer(t, opts, al, bytesSeq(16))

	n, ok := b.TrySpill()
	require.True(t, ok)
	require.Equal(t, int64(16), n)
	require.Equal(t, api.HostResident, b.Residency())

	// Already spilled: nothing further to free.
	n, ok = b.TrySpill()
	require.False(t, ok)
	require.Zero(t, n)
}
