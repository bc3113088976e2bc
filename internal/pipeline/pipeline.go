// Package pipeline drives a single transaction through
// build → confirm → sign → finalize → submit → poll as the linear
// state machine described in spec.md §4.6, emitting exactly one
// tracking event per transition on a hot, replayable event bus and
// completing a single-value result with the final transaction ID or
// the first terminal error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/radixdlt/ledger-core/internal/apdu"
	"github.com/radixdlt/ledger-core/internal/model"
	"github.com/radixdlt/ledger-core/internal/node"
	"github.com/radixdlt/ledger-core/internal/rerr"
	"github.com/radixdlt/ledger-core/internal/wallet"
)

// ConfirmationMode selects how the pipeline advances past
// AwaitingConfirmation.
type ConfirmationMode int

const (
	// ConfirmSkip auto-signals confirmation the instant it is asked for.
	ConfirmSkip ConfirmationMode = iota
	// ConfirmManual blocks until the caller calls Confirm() on the
	// ConfirmationRequest delivered via Tracking.ConfirmationRequests.
	ConfirmManual
)

// Options configures a single Run invocation, per spec.md §4.6 Inputs.
type Options struct {
	UserConfirmation ConfirmationMode

	// PollTrigger drives status-polling ticks. Nil selects the default:
	// a 1-second periodic tick, per spec.md §4.6. Ignored when
	// StatusSource is set.
	PollTrigger <-chan time.Time

	// StatusSource, when non-nil, replaces the tick-driven HTTP poll
	// loop with a push-based status feed for the pending transaction —
	// e.g. node.StatusSubscriber.Subscribe, which matches this
	// signature exactly. poll calls it once, for the submitted txID,
	// and consumes updates directly from the returned channel, still
	// deduping consecutive equal statuses and completing exactly as the
	// tick-poll path does.
	StatusSource func(ctx context.Context, txID string) (<-chan model.TransactionStatus, error)

	// Log receives operational messages for non-terminal failures (e.g.
	// a transient polling error). Defaults to the standard logger.
	Log *logrus.Entry
}

// Completion is the single-value result spec.md §4.6 Outputs names:
// the final transaction ID on success, or the first terminal error.
type Completion struct {
	TxID string
	Err  error
}

// Tracking is the handle returned to callers: a replayable event
// stream, a completion result, and the confirmation rendezvous,
// mirroring the "builder-with-self-return" facade's handle in spec.md
// §9 without the method-chaining sugar (Go favors a plain value here).
type Tracking struct {
	bus          *eventBus
	confirmSlot  *confirmationSlot
	completion   chan Completion
	completeOnce sync.Once
	cancel       context.CancelFunc
}

// Subscribe returns a channel replaying every tracking event published
// so far and then every future one, plus an unsubscribe func. Multiple
// independent subscribers are supported.
func (t *Tracking) Subscribe() (<-chan model.TrackingEvent, func()) {
	return t.bus.subscribe()
}

// ConfirmationRequests delivers the {txToConfirm, confirm()} pair
// exactly once, whether the subscriber joined before or after
// ASKED_FOR_CONFIRMATION was emitted.
func (t *Tracking) ConfirmationRequests() <-chan *ConfirmationRequest {
	return t.confirmSlot.subscribe()
}

// Completion yields the terminal result. Buffered so it never blocks
// the state machine goroutine even if nobody is listening yet.
func (t *Tracking) Completion() <-chan Completion {
	return t.completion
}

// Cancel disposes the tracking handle: every pending subscription is
// torn down in O(1) and the state machine goroutine abandons any
// in-flight node call. An in-flight device frame is never aborted —
// Session.Send always lets it finish on the wire — so Cancel alone
// never desynchronizes the device.
func (t *Tracking) Cancel() {
	t.cancel()
}

func (t *Tracking) complete(c Completion) {
	t.completeOnce.Do(func() {
		t.completion <- c
		close(t.completion)
	})
}

// Run starts the state machine for one transaction and returns
// immediately with its Tracking handle; the machine itself runs on its
// own goroutine, per the "single-threaded cooperative concurrency"
// model of spec.md §5 realized as one goroutine per transaction with
// no shared mutable state between transactions.
func Run(ctx context.Context, w wallet.Wallet, client node.Client, intent model.Intent, senderAddress string, opts Options) *Tracking {
	runCtx, cancel := context.WithCancel(ctx)
	t := &Tracking{
		bus:         newEventBus(),
		confirmSlot: newConfirmationSlot(),
		completion:  make(chan Completion, 1),
		cancel:      cancel,
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	go t.run(runCtx, w, client, intent, senderAddress, opts)
	return t
}

func (t *Tracking) run(ctx context.Context, w wallet.Wallet, client node.Client, intent model.Intent, senderAddress string, opts Options) {
	defer t.bus.close()

	fail := func(phase model.Phase, err error) {
		t.bus.publish(model.TrackingEvent{Phase: phase, At: time.Now(), Err: err, ErrPhase: phase})
		t.complete(Completion{Err: err})
	}

	t.bus.publish(model.TrackingEvent{Phase: model.PhaseInitiated, At: time.Now()})

	nonXRD := intent.NonNativeResourceNames()
	if len(nonXRD) > 1 {
		fail(model.PhaseInitiated, rerr.New(rerr.KindMultipleNonNativeRRI,
			fmt.Sprintf("intent references %d distinct non-native resources, at most 1 is supported", len(nonXRD))))
		return
	}
	var hrp string
	if len(nonXRD) == 1 {
		hrp = nonXRD[0]
	}

	built, err := client.BuildTransaction(ctx, intent, senderAddress)
	if err != nil {
		fail(model.PhaseBuiltFromIntent, rerr.Wrap(rerr.KindBuildTxFromIntent, err))
		return
	}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseBuiltFromIntent, At: time.Now(), Built: built})

	req := newConfirmationRequest(*built)
	t.confirmSlot.set(req)
	if opts.UserConfirmation == ConfirmSkip {
		req.Confirm()
	}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseAskedForConfirmation, At: time.Now(), ToConfirm: built})

	select {
	case <-req.Done():
	case <-ctx.Done():
		return
	}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseConfirmed, At: time.Now()})

	signature, err := w.Sign(ctx, *built, hrp)
	if err != nil {
		fail(model.PhaseSigned, classifySignError(err))
		return
	}
	signerPublicKey, err := w.PublicKey(ctx)
	if err != nil {
		fail(model.PhaseSigned, classifySignError(err))
		return
	}
	signed := model.SignedTransaction{Built: *built, Signature: signature, SignerPublicKey: signerPublicKey}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseSigned, At: time.Now(), Signed: &signed})

	finalized, err := client.FinalizeTransaction(ctx, signed)
	if err != nil {
		fail(model.PhaseFinalized, rerr.Wrap(rerr.KindFinalizeTx, err))
		return
	}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseFinalized, At: time.Now(), Finalized: finalized})

	pending, err := client.SubmitSignedTransaction(ctx, *finalized)
	if err != nil {
		fail(model.PhaseSubmitted, rerr.Wrap(rerr.KindSubmitSignedTx, err))
		return
	}
	t.bus.publish(model.TrackingEvent{Phase: model.PhaseSubmitted, At: time.Now(), Pending: pending})

	t.poll(ctx, client, pending.TxID, opts)
}

// classifySignError maps a wallet.Sign failure to its rerr.Kind per
// spec.md §7: the chunker's hrp_len precondition is KindHrpTooLong, an
// already domain-tagged error (e.g. a *rerr.Error{Kind: DeviceStatus}
// from the device session) is passed through untouched rather than
// wrapped a second time, and anything else falls back to
// KindDeviceStatus. That fallback also covers the chunker's other local
// failures (too many instructions, an instruction too long for one
// frame), which are not device errors.
func classifySignError(err error) error {
	if apdu.IsHrpTooLong(err) {
		return rerr.Wrap(rerr.KindHrpTooLong, err)
	}
	var tagged *rerr.Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return rerr.Wrap(rerr.KindDeviceStatus, err)
}

// poll drives the status tracking of spec.md §4.6 step 7-9: one shared
// subscription backs both the "first CONFIRMED" and "first FAILED"
// watchers, consecutive duplicate statuses are suppressed. The status
// source is either a push feed (opts.StatusSource, e.g. a WebSocket
// subscription) or, by default, an HTTP tick-poll loop against
// client.TransactionStatus.
func (t *Tracking) poll(ctx context.Context, client node.Client, txID string, opts Options) {
	if opts.StatusSource != nil {
		t.pollFromSource(ctx, txID, opts)
		return
	}
	t.pollByTicking(ctx, client, txID, opts)
}

func (t *Tracking) pollByTicking(ctx context.Context, client node.Client, txID string, opts Options) {
	trigger := opts.PollTrigger
	if trigger == nil {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		trigger = ticker.C
	}

	var lastStatus model.TxState
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
		}

		status, err := client.TransactionStatus(ctx, txID)
		if err != nil {
			opts.Log.WithError(err).WithField("txID", txID).Warn("pipeline: transient status poll error")
			continue
		}
		if t.observeStatus(txID, status, &lastStatus) {
			return
		}
	}
}

// pollFromSource consumes status updates pushed by opts.StatusSource
// instead of tick-polling, applying the same dedup and terminal rules.
// A subscribe failure is treated as a terminal KindTransactionStatus
// error: with no push feed and no tick fallback configured, the
// pipeline has no way to observe the pending transaction's status.
func (t *Tracking) pollFromSource(ctx context.Context, txID string, opts Options) {
	statuses, err := opts.StatusSource(ctx, txID)
	if err != nil {
		subErr := rerr.Wrap(rerr.KindTransactionStatus, fmt.Errorf("subscribing to status updates for %s: %w", txID, err))
		t.bus.publish(model.TrackingEvent{
			Phase:    model.PhaseUpdateOfStatusOfPendingTx,
			At:       time.Now(),
			ErrPhase: model.PhaseUpdateOfStatusOfPendingTx,
			Err:      subErr,
		})
		t.complete(Completion{Err: subErr})
		return
	}

	var lastStatus model.TxState
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if t.observeStatus(txID, &status, &lastStatus) {
				return
			}
		}
	}
}

// observeStatus applies the dedup-by-last-status gate, publishes the
// UPDATE_OF_STATUS_OF_PENDING_TX event on change, and drives the
// Completed/Failed terminal transitions. Reports whether the caller's
// poll loop should stop.
func (t *Tracking) observeStatus(txID string, status *model.TransactionStatus, lastStatus *model.TxState) bool {
	if status.Status == *lastStatus {
		return false
	}
	*lastStatus = status.Status

	t.bus.publish(model.TrackingEvent{
		Phase:  model.PhaseUpdateOfStatusOfPendingTx,
		At:     time.Now(),
		Status: status,
	})

	switch status.Status {
	case model.TxConfirmed:
		t.bus.publish(model.TrackingEvent{Phase: model.PhaseCompleted, At: time.Now()})
		t.complete(Completion{TxID: txID})
		return true
	case model.TxFailed:
		err := rerr.New(rerr.KindTransactionStatus, fmt.Sprintf("transaction %s failed", txID))
		t.bus.publish(model.TrackingEvent{
			Phase:    model.PhaseUpdateOfStatusOfPendingTx,
			At:       time.Now(),
			ErrPhase: model.PhaseUpdateOfStatusOfPendingTx,
			Err:      err,
		})
		t.complete(Completion{Err: err})
		return true
	}
	return false
}
