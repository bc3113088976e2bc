package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/model"
	"github.com/radixdlt/ledger-core/internal/node"
	"github.com/radixdlt/ledger-core/internal/rerr"
	"github.com/radixdlt/ledger-core/internal/wallet"
)

// TestClassifySignErrorMapsHrpTooLong covers spec.md §7: the chunker's
// hrp_len precondition must surface as KindHrpTooLong, not the generic
// KindDeviceStatus every other Sign failure falls back to.
func TestClassifySignErrorMapsHrpTooLong(t *testing.T) {
	_, err := apdu.BuildSignTxStream(apdu.NewRadixPath(0, 0, 0), 1, nil, string(make([]byte, 256)))
	require.Error(t, err)
	require.True(t, apdu.IsHrpTooLong(err))

	classified := classifySignError(err)
	assert.True(t, rerr.Of(classified, rerr.KindHrpTooLong))
}

// TestClassifySignErrorPassesThroughTaggedDeviceError covers the
// double-wrap bug: an already domain-tagged device error (e.g.
// rerr.DeviceStatus) must come back unchanged, not wrapped a second
// time under another KindDeviceStatus layer.
func TestClassifySignErrorPassesThroughTaggedDeviceError(t *testing.T) {
	original := rerr.DeviceStatus(0x6985, 0x05)

	classified := classifySignError(original)
	assert.Same(t, original, classified)
}

// TestClassifySignErrorFallsBackToDeviceStatus covers the residual
// case: an untagged error from Sign (e.g. a transport failure) is
// wrapped as KindDeviceStatus.
func TestClassifySignErrorFallsBackToDeviceStatus(t *testing.T) {
	classified := classifySignError(errors.New("boom"))
	assert.True(t, rerr.Of(classified, rerr.KindDeviceStatus))
}

func xrdTransferIntent() model.Intent {
	return model.Intent{
		SenderAddress: "rdx1sender",
		Actions: []model.Action{
			{Kind: model.ActionTransfer, ResourceName: "xrd", Amount: "10", ToAddress: "rdx1receiver"},
		},
	}
}

func drainPhases(t *testing.T, events <-chan model.TrackingEvent, timeout time.Duration) []model.Phase {
	t.Helper()
	var phases []model.Phase
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return phases
			}
			phases = append(phases, e.Phase)
			if e.Phase == model.PhaseCompleted || e.IsError() {
				// One more receive to observe channel close, non-blocking.
				select {
				case _, ok := <-events:
					if !ok {
						return phases
					}
				case <-time.After(50 * time.Millisecond):
				}
				return phases
			}
		case <-deadline:
			t.Fatal("timed out waiting for tracking events")
		}
	}
}

// TestAutoConfirmedHappyPath covers spec.md §8 scenario 4: skip
// confirmation, a PENDING/PENDING/CONFIRMED status stream, and the
// full phase sequence through COMPLETED.
func TestAutoConfirmedHappyPath(t *testing.T) {
	statuses := []model.TxState{model.TxPending, model.TxPending, model.TxConfirmed}
	var call int

	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			return &model.BuiltTransaction{Bytes: []byte{1, 2, 3}, Instructions: [][]byte{{1}}, InstructionCount: 1, ByteCount: 3}, nil
		},
		FinalizeTransactionFn: func(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
			return &model.FinalizedTransaction{Signed: signed, TxID: "tx-1"}, nil
		},
		SubmitSignedTransactionFn: func(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
			return &model.PendingTransaction{Finalized: finalized, TxID: finalized.TxID}, nil
		},
		TransactionStatusFn: func(ctx context.Context, txID string) (*model.TransactionStatus, error) {
			idx := call
			if idx >= len(statuses) {
				idx = len(statuses) - 1
			}
			call++
			return &model.TransactionStatus{TxID: txID, Status: statuses[idx]}, nil
		},
	}
	w := &wallet.StaticWallet{Signature: []byte{0xAA, 0xBB}}

	trigger := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracking := Run(ctx, w, client, xrdTransferIntent(), "rdx1sender", Options{
		UserConfirmation: ConfirmSkip,
		PollTrigger:      trigger,
	})
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	for i := 0; i < len(statuses); i++ {
		trigger <- time.Now()
	}

	phases := drainPhases(t, events, 2*time.Second)
	assert.Equal(t, []model.Phase{
		model.PhaseInitiated,
		model.PhaseBuiltFromIntent,
		model.PhaseAskedForConfirmation,
		model.PhaseConfirmed,
		model.PhaseSigned,
		model.PhaseFinalized,
		model.PhaseSubmitted,
		model.PhaseUpdateOfStatusOfPendingTx,
		model.PhaseUpdateOfStatusOfPendingTx,
		model.PhaseCompleted,
	}, phases)

	select {
	case c := <-tracking.Completion():
		require.NoError(t, c.Err)
		assert.Equal(t, "tx-1", c.TxID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// TestManualConfirmationDelayed covers spec.md §8 scenario 5: the
// pipeline must not advance past ASKED_FOR_CONFIRMATION until Confirm
// is called, however long the caller waits first.
func TestManualConfirmationDelayed(t *testing.T) {
	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			return &model.BuiltTransaction{Bytes: []byte{1}, Instructions: [][]byte{{1}}, InstructionCount: 1, ByteCount: 1}, nil
		},
		FinalizeTransactionFn: func(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
			return &model.FinalizedTransaction{Signed: signed, TxID: "tx-2"}, nil
		},
		SubmitSignedTransactionFn: func(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
			return &model.PendingTransaction{Finalized: finalized, TxID: finalized.TxID}, nil
		},
		TransactionStatusFn: func(ctx context.Context, txID string) (*model.TransactionStatus, error) {
			return &model.TransactionStatus{TxID: txID, Status: model.TxConfirmed}, nil
		},
	}
	w := &wallet.StaticWallet{Signature: []byte{0xCC}}

	trigger := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracking := Run(ctx, w, client, xrdTransferIntent(), "rdx1sender", Options{
		UserConfirmation: ConfirmManual,
		PollTrigger:      trigger,
	})

	var req *ConfirmationRequest
	select {
	case req = <-tracking.ConfirmationRequests():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for confirmation request")
	}
	require.NotNil(t, req)

	// The pipeline must not progress while unconfirmed, regardless of
	// how long the caller waits before calling Confirm.
	select {
	case c := <-tracking.Completion():
		t.Fatalf("pipeline completed before confirmation: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	req.Confirm()
	req.Confirm() // idempotent, must not panic or double-advance

	trigger <- time.Now()

	select {
	case c := <-tracking.Completion():
		require.NoError(t, c.Err)
		assert.Equal(t, "tx-2", c.TxID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion after confirm")
	}
}

// TestNodeRejectsBuild covers spec.md §8 scenario 6.
func TestNodeRejectsBuild(t *testing.T) {
	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			return nil, assert.AnError
		},
	}
	w := &wallet.StaticWallet{}

	tracking := Run(context.Background(), w, client, xrdTransferIntent(), "rdx1sender", Options{UserConfirmation: ConfirmSkip})
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	phases := drainPhases(t, events, time.Second)
	require.Len(t, phases, 2)
	assert.Equal(t, model.PhaseInitiated, phases[0])
	assert.Equal(t, model.PhaseBuiltFromIntent, phases[1])

	select {
	case c := <-tracking.Completion():
		require.Error(t, c.Err)
		assert.True(t, rerr.Of(c.Err, rerr.KindBuildTxFromIntent))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// TestMultiRRIRejection covers spec.md §8 scenario 7: the pipeline
// must reject an intent with more than one distinct non-native
// resource name before any node or device call.
func TestMultiRRIRejection(t *testing.T) {
	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			t.Fatal("build_transaction must not be called for a multi-RRI intent")
			return nil, nil
		},
	}
	w := &wallet.StaticWallet{}
	intent := model.Intent{
		SenderAddress: "rdx1sender",
		Actions: []model.Action{
			{Kind: model.ActionTransfer, ResourceName: "foo", Amount: "1", ToAddress: "rdx1a"},
			{Kind: model.ActionTransfer, ResourceName: "bar", Amount: "1", ToAddress: "rdx1b"},
		},
	}

	tracking := Run(context.Background(), w, client, intent, "rdx1sender", Options{UserConfirmation: ConfirmSkip})
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	// INITIATED, then the terminal error event tagged with INITIATED.
	phases := drainPhases(t, events, time.Second)
	require.Len(t, phases, 2)
	assert.Equal(t, model.PhaseInitiated, phases[0])
	assert.Equal(t, model.PhaseInitiated, phases[1])

	select {
	case c := <-tracking.Completion():
		require.Error(t, c.Err)
		assert.True(t, rerr.Of(c.Err, rerr.KindMultipleNonNativeRRI))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// TestStatusSourcePushFeed covers the push-based alternative to
// tick-polling: when Options.StatusSource is set, the pipeline must
// consume status updates from the returned channel instead of calling
// client.TransactionStatus, applying the same dedup and terminal rules.
func TestStatusSourcePushFeed(t *testing.T) {
	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			return &model.BuiltTransaction{Bytes: []byte{1}, Instructions: [][]byte{{1}}, InstructionCount: 1, ByteCount: 1}, nil
		},
		FinalizeTransactionFn: func(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
			return &model.FinalizedTransaction{Signed: signed, TxID: "tx-4"}, nil
		},
		SubmitSignedTransactionFn: func(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
			return &model.PendingTransaction{Finalized: finalized, TxID: finalized.TxID}, nil
		},
		TransactionStatusFn: func(ctx context.Context, txID string) (*model.TransactionStatus, error) {
			t.Fatal("TransactionStatus must not be called when StatusSource is set")
			return nil, nil
		},
	}
	w := &wallet.StaticWallet{Signature: []byte{0x02}}

	pushed := make(chan model.TransactionStatus, 4)
	tracking := Run(context.Background(), w, client, xrdTransferIntent(), "rdx1sender", Options{
		UserConfirmation: ConfirmSkip,
		StatusSource: func(ctx context.Context, txID string) (<-chan model.TransactionStatus, error) {
			assert.Equal(t, "tx-4", txID)
			return pushed, nil
		},
	})
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	pushed <- model.TransactionStatus{TxID: "tx-4", Status: model.TxPending}
	pushed <- model.TransactionStatus{TxID: "tx-4", Status: model.TxPending}
	pushed <- model.TransactionStatus{TxID: "tx-4", Status: model.TxConfirmed}

	phases := drainPhases(t, events, 2*time.Second)
	assert.Equal(t, []model.Phase{
		model.PhaseInitiated,
		model.PhaseBuiltFromIntent,
		model.PhaseAskedForConfirmation,
		model.PhaseConfirmed,
		model.PhaseSigned,
		model.PhaseFinalized,
		model.PhaseSubmitted,
		model.PhaseUpdateOfStatusOfPendingTx,
		model.PhaseUpdateOfStatusOfPendingTx,
		model.PhaseCompleted,
	}, phases)

	select {
	case c := <-tracking.Completion():
		require.NoError(t, c.Err)
		assert.Equal(t, "tx-4", c.TxID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// TestStatusDeduplication covers the status-dedup invariant of
// spec.md §8: a repeated status must not produce a second
// UPDATE_OF_STATUS_OF_PENDING_TX event.
func TestStatusDeduplication(t *testing.T) {
	statuses := []model.TxState{model.TxPending, model.TxPending, model.TxPending, model.TxConfirmed}
	var call int

	client := &node.MockClient{
		BuildTransactionFn: func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
			return &model.BuiltTransaction{Bytes: []byte{1}, Instructions: [][]byte{{1}}, InstructionCount: 1, ByteCount: 1}, nil
		},
		FinalizeTransactionFn: func(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
			return &model.FinalizedTransaction{Signed: signed, TxID: "tx-3"}, nil
		},
		SubmitSignedTransactionFn: func(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
			return &model.PendingTransaction{Finalized: finalized, TxID: finalized.TxID}, nil
		},
		TransactionStatusFn: func(ctx context.Context, txID string) (*model.TransactionStatus, error) {
			idx := call
			if idx >= len(statuses) {
				idx = len(statuses) - 1
			}
			call++
			return &model.TransactionStatus{TxID: txID, Status: statuses[idx]}, nil
		},
	}
	w := &wallet.StaticWallet{Signature: []byte{0x01}}
	trigger := make(chan time.Time)

	tracking := Run(context.Background(), w, client, xrdTransferIntent(), "rdx1sender", Options{
		UserConfirmation: ConfirmSkip,
		PollTrigger:      trigger,
	})
	events, unsubscribe := tracking.Subscribe()
	defer unsubscribe()

	for i := 0; i < len(statuses); i++ {
		trigger <- time.Now()
	}
	phases := drainPhases(t, events, 2*time.Second)

	statusUpdates := 0
	for _, p := range phases {
		if p == model.PhaseUpdateOfStatusOfPendingTx {
			statusUpdates++
		}
	}
	assert.Equal(t, 2, statusUpdates, "three repeated PENDING statuses followed by CONFIRMED should collapse to one PENDING update and one CONFIRMED update")
}
