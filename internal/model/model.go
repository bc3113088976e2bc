// Package model holds the value types threaded through the build →
// confirm → sign → finalize → submit → poll pipeline. Every value here
// is immutable once constructed and is moved, not mutated, between
// pipeline stages, per the Ownership paragraph of spec.md §3.
package model

import "time"

// Action is one operation within a transaction intent: a transfer,
// stake, unstake, or message. ResourceName is the empty string for
// actions that carry no resource reference (e.g. a plain message).
type Action struct {
	Kind         ActionKind
	ResourceName string // "xrd" for the native token; empty if not a transfer
	Amount       string // decimal string; magnitude is opaque to the core
	Validator    string // stake/unstake target, empty otherwise
	ToAddress    string // transfer destination, empty otherwise
	Message      string // optional attached message
}

type ActionKind string

const (
	ActionTransfer ActionKind = "transfer"
	ActionStake    ActionKind = "stake"
	ActionUnstake  ActionKind = "unstake"
	ActionMessage  ActionKind = "message"
)

// Intent is the semantic description of a transaction before it has
// been built by the node, produced by an external builder collaborator
// per spec.md §1.
type Intent struct {
	SenderAddress string
	Actions       []Action
}

// NonNativeResourceNames returns the distinct, non-"xrd" resource names
// referenced by this intent's transfer actions, in first-seen order.
func (i Intent) NonNativeResourceNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range i.Actions {
		if a.Kind != ActionTransfer || a.ResourceName == "" || a.ResourceName == "xrd" {
			continue
		}
		if !seen[a.ResourceName] {
			seen[a.ResourceName] = true
			names = append(names, a.ResourceName)
		}
	}
	return names
}

// BuiltTransaction is the node-serialized instruction stream ready for
// signing, plus the parsed instruction count the metadata frame needs.
type BuiltTransaction struct {
	Bytes            []byte
	Instructions     [][]byte
	InstructionCount int
	ByteCount        int
}

// SignedTransaction is a built transaction plus its signature and the
// public key that produced it.
type SignedTransaction struct {
	Built           BuiltTransaction
	Signature       []byte
	SignerPublicKey []byte
}

// FinalizedTransaction is a signed transaction plus the node-assigned
// transaction identifier.
type FinalizedTransaction struct {
	Signed SignedTransaction
	TxID   string
}

// PendingTransaction is a finalized transaction accepted by the submit
// endpoint.
type PendingTransaction struct {
	Finalized FinalizedTransaction
	TxID      string
}

// TxState is the coarse status reported by the node's status endpoint.
type TxState string

const (
	TxPending   TxState = "PENDING"
	TxConfirmed TxState = "CONFIRMED"
	TxFailed    TxState = "FAILED"
)

// TransactionStatus is a single status observation for a pending
// transaction.
type TransactionStatus struct {
	TxID   string
	Status TxState
}

// Account is the value emitted by Wallet.ObserveActiveAccount(): an
// address plus the key-source path used to control it.
type Account struct {
	Address string
	Path    string // e.g. "m/44'/536'/0'/0/0", for display/logging only
}

// Phase tags a point in the pipeline's state machine, per spec.md §3's
// Tracking Event union.
type Phase string

const (
	PhaseInitiated                    Phase = "INITIATED"
	PhaseBuiltFromIntent              Phase = "BUILT_FROM_INTENT"
	PhaseAskedForConfirmation         Phase = "ASKED_FOR_CONFIRMATION"
	PhaseConfirmed                    Phase = "CONFIRMED"
	PhaseSigned                       Phase = "SIGNED"
	PhaseFinalized                    Phase = "FINALIZED"
	PhaseSubmitted                    Phase = "SUBMITTED"
	PhaseUpdateOfStatusOfPendingTx    Phase = "UPDATE_OF_STATUS_OF_PENDING_TX"
	PhaseCompleted                    Phase = "COMPLETED"
)

// TrackingEvent is one emission on the pipeline's events stream: either
// a successful transition carrying its phase's payload, or a terminal
// error tagged with the phase that was running when it occurred.
type TrackingEvent struct {
	Phase     Phase
	At        time.Time
	Built     *BuiltTransaction
	ToConfirm *BuiltTransaction
	Signed    *SignedTransaction
	Finalized *FinalizedTransaction
	Pending   *PendingTransaction
	Status    *TransactionStatus

	Err      error // non-nil exactly for terminal error events
	ErrPhase Phase // the phase running when Err was observed
}

// IsError reports whether this event is the terminal error variant.
func (e TrackingEvent) IsError() bool { return e.Err != nil }
