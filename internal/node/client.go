// Package node is the thin typed wrapper over the node API the
// transaction pipeline and its callers use (spec.md §4.5): every
// operation wraps its underlying error in the matching rerr.Kind
// without losing the original message.
package node

import (
	"context"

	"github.com/radixdlt/ledger-core/internal/model"
)

// Client is the full node operation set named in spec.md §4.5.
type Client interface {
	NetworkID(ctx context.Context) (int, error)
	TokenBalancesFor(ctx context.Context, address string) (*TokenBalances, error)
	TransactionHistory(ctx context.Context, address string, cursor string, size int) (*TxHistoryPage, error)
	NativeToken(ctx context.Context) (*TokenInfo, error)
	TokenInfo(ctx context.Context, rri string) (*TokenInfo, error)
	StakesFor(ctx context.Context, address string) ([]StakePosition, error)
	UnstakesFor(ctx context.Context, address string) ([]StakePosition, error)
	Validators(ctx context.Context) ([]Validator, error)
	LookupValidator(ctx context.Context, addr string) (*Validator, error)
	LookupTransaction(ctx context.Context, txID string) (*TxRecord, error)
	TransactionStatus(ctx context.Context, txID string) (*model.TransactionStatus, error)
	NetworkThroughput(ctx context.Context) (float64, error)
	NetworkDemand(ctx context.Context) (float64, error)

	BuildTransaction(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error)
	FinalizeTransaction(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error)
	SubmitSignedTransaction(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error)
}

// TokenBalances is one address's holdings, by RRI.
type TokenBalances struct {
	Address  string
	Balances map[string]string // RRI -> decimal string
}

// TxHistoryPage is one page of an address's transaction history.
type TxHistoryPage struct {
	Cursor       string
	Transactions []TxRecord
}

// TxRecord is a single historical transaction as reported by the node.
type TxRecord struct {
	TxID   string
	Status model.TxState
}

// TokenInfo describes a fungible resource.
type TokenInfo struct {
	RRI      string
	Name     string
	Symbol   string
	Decimals int
}

// StakePosition is one stake or unstake position for an address.
type StakePosition struct {
	ValidatorAddress string
	Amount           string
}

// Validator describes a single network validator.
type Validator struct {
	Address      string
	Name         string
	TotalStake   string
	OwnerAddress string
}
