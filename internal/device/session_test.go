package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/rerr"
)

func TestSessionSendSuccess(t *testing.T) {
	lb := NewLoopback()
	lb.Script(byte(apdu.InsGetVersion), 0, 0, []byte{1, 2, 3}, apdu.SWOK)

	session := NewSession(lb)
	frame, err := apdu.GetVersion()
	require.NoError(t, err)

	payload, err := session.Send(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, payload)
	assert.False(t, session.Dirty())
}

func TestSessionSendUnexpectedStatusMarksDirty(t *testing.T) {
	lb := NewLoopback()
	lb.Script(byte(apdu.InsGetVersion), 0, 0, nil, 0x6985)

	session := NewSession(lb)
	frame, err := apdu.GetVersion()
	require.NoError(t, err)

	_, err = session.Send(context.Background(), frame)
	require.Error(t, err)
	assert.True(t, rerr.Of(err, rerr.KindDeviceStatus))
	assert.True(t, session.Dirty())
}

func TestSessionResetClearsDirty(t *testing.T) {
	lb := NewLoopback()
	lb.Script(byte(apdu.InsGetVersion), 0, 0, nil, 0x6985)

	session := NewSession(lb)
	frame, err := apdu.GetVersion()
	require.NoError(t, err)
	_, err = session.Send(context.Background(), frame)
	require.Error(t, err)
	require.True(t, session.Dirty())

	lb.Script(byte(apdu.InsGetVersion), 0, 0, []byte{9}, apdu.SWOK)
	require.NoError(t, session.Reset(context.Background()))
	assert.False(t, session.Dirty())
}

func TestSessionCancellationMarksDirtyAfterWireCompletes(t *testing.T) {
	lb := NewLoopback()
	lb.Script(byte(apdu.InsGetVersion), 0, 0, []byte{1}, apdu.SWOK)

	session := NewSession(lb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame, err := apdu.GetVersion()
	require.NoError(t, err)

	_, err = session.Send(ctx, frame)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, session.Dirty())
	// The exchange still ran on the wire even though the context was
	// already cancelled: the loopback recorded the frame.
	require.Len(t, lb.Sent, 1)
}
