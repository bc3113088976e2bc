package node

import (
	"context"

	"github.com/radixdlt/ledger-core/internal/model"
)

// MockClient is a scriptable Client test double, in the spirit of the
// teacher's MockRPCClient: each operation is a settable function field
// defaulting to a zero-value success so tests only need to configure
// the calls they care about.
type MockClient struct {
	BuildTransactionFn        func(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error)
	FinalizeTransactionFn     func(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error)
	SubmitSignedTransactionFn func(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error)
	TransactionStatusFn       func(ctx context.Context, txID string) (*model.TransactionStatus, error)

	NetworkIDFn           func(ctx context.Context) (int, error)
	TokenBalancesForFn    func(ctx context.Context, address string) (*TokenBalances, error)
	TransactionHistoryFn  func(ctx context.Context, address, cursor string, size int) (*TxHistoryPage, error)
	NativeTokenFn         func(ctx context.Context) (*TokenInfo, error)
	TokenInfoFn           func(ctx context.Context, rri string) (*TokenInfo, error)
	StakesForFn           func(ctx context.Context, address string) ([]StakePosition, error)
	UnstakesForFn         func(ctx context.Context, address string) ([]StakePosition, error)
	ValidatorsFn          func(ctx context.Context) ([]Validator, error)
	LookupValidatorFn     func(ctx context.Context, addr string) (*Validator, error)
	LookupTransactionFn   func(ctx context.Context, txID string) (*TxRecord, error)
	NetworkThroughputFn   func(ctx context.Context) (float64, error)
	NetworkDemandFn       func(ctx context.Context) (float64, error)

	// Calls records every method invoked, in order, for assertions.
	Calls []string
}

func (m *MockClient) record(name string) { m.Calls = append(m.Calls, name) }

func (m *MockClient) NetworkID(ctx context.Context) (int, error) {
	m.record("NetworkID")
	if m.NetworkIDFn != nil {
		return m.NetworkIDFn(ctx)
	}
	return 0, nil
}

func (m *MockClient) TokenBalancesFor(ctx context.Context, address string) (*TokenBalances, error) {
	m.record("TokenBalancesFor")
	if m.TokenBalancesForFn != nil {
		return m.TokenBalancesForFn(ctx, address)
	}
	return &TokenBalances{Address: address}, nil
}

func (m *MockClient) TransactionHistory(ctx context.Context, address, cursor string, size int) (*TxHistoryPage, error) {
	m.record("TransactionHistory")
	if m.TransactionHistoryFn != nil {
		return m.TransactionHistoryFn(ctx, address, cursor, size)
	}
	return &TxHistoryPage{}, nil
}

func (m *MockClient) NativeToken(ctx context.Context) (*TokenInfo, error) {
	m.record("NativeToken")
	if m.NativeTokenFn != nil {
		return m.NativeTokenFn(ctx)
	}
	return &TokenInfo{}, nil
}

func (m *MockClient) TokenInfo(ctx context.Context, rri string) (*TokenInfo, error) {
	m.record("TokenInfo")
	if m.TokenInfoFn != nil {
		return m.TokenInfoFn(ctx, rri)
	}
	return &TokenInfo{RRI: rri}, nil
}

func (m *MockClient) StakesFor(ctx context.Context, address string) ([]StakePosition, error) {
	m.record("StakesFor")
	if m.StakesForFn != nil {
		return m.StakesForFn(ctx, address)
	}
	return nil, nil
}

func (m *MockClient) UnstakesFor(ctx context.Context, address string) ([]StakePosition, error) {
	m.record("UnstakesFor")
	if m.UnstakesForFn != nil {
		return m.UnstakesForFn(ctx, address)
	}
	return nil, nil
}

func (m *MockClient) Validators(ctx context.Context) ([]Validator, error) {
	m.record("Validators")
	if m.ValidatorsFn != nil {
		return m.ValidatorsFn(ctx)
	}
	return nil, nil
}

func (m *MockClient) LookupValidator(ctx context.Context, addr string) (*Validator, error) {
	m.record("LookupValidator")
	if m.LookupValidatorFn != nil {
		return m.LookupValidatorFn(ctx, addr)
	}
	return &Validator{Address: addr}, nil
}

func (m *MockClient) LookupTransaction(ctx context.Context, txID string) (*TxRecord, error) {
	m.record("LookupTransaction")
	if m.LookupTransactionFn != nil {
		return m.LookupTransactionFn(ctx, txID)
	}
	return &TxRecord{TxID: txID}, nil
}

func (m *MockClient) TransactionStatus(ctx context.Context, txID string) (*model.TransactionStatus, error) {
	m.record("TransactionStatus")
	if m.TransactionStatusFn != nil {
		return m.TransactionStatusFn(ctx, txID)
	}
	return &model.TransactionStatus{TxID: txID}, nil
}

func (m *MockClient) NetworkThroughput(ctx context.Context) (float64, error) {
	m.record("NetworkThroughput")
	if m.NetworkThroughputFn != nil {
		return m.NetworkThroughputFn(ctx)
	}
	return 0, nil
}

func (m *MockClient) NetworkDemand(ctx context.Context) (float64, error) {
	m.record("NetworkDemand")
	if m.NetworkDemandFn != nil {
		return m.NetworkDemandFn(ctx)
	}
	return 0, nil
}

func (m *MockClient) BuildTransaction(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
	m.record("BuildTransaction")
	if m.BuildTransactionFn != nil {
		return m.BuildTransactionFn(ctx, intent, sender)
	}
	return &model.BuiltTransaction{}, nil
}

func (m *MockClient) FinalizeTransaction(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
	m.record("FinalizeTransaction")
	if m.FinalizeTransactionFn != nil {
		return m.FinalizeTransactionFn(ctx, signed)
	}
	return &model.FinalizedTransaction{}, nil
}

func (m *MockClient) SubmitSignedTransaction(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
	m.record("SubmitSignedTransaction")
	if m.SubmitSignedTransactionFn != nil {
		return m.SubmitSignedTransactionFn(ctx, finalized)
	}
	return &model.PendingTransaction{}, nil
}

var _ Client = (*MockClient)(nil)
