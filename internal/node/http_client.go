package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radixdlt/ledger-core/internal/model"
	"github.com/radixdlt/ledger-core/internal/rerr"
)

// HTTPClient implements Client over the node's REST/JSON API using a
// single base URL and a plain net/http client, the same transport idiom
// the teacher's own RPC client uses for its JSON-RPC calls.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds an HTTPClient against baseURL with the given
// request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("node: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("node: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("node: request to %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("node: read response from %s: %w", path, err)
	}
	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("node: %s returned HTTP %d: %s", path, httpResp.StatusCode, string(data))
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("node: unmarshal response from %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) NetworkID(ctx context.Context) (int, error) {
	var out struct {
		NetworkID int `json:"networkId"`
	}
	if err := c.post(ctx, "/network/id", nil, &out); err != nil {
		return 0, rerr.Wrap(rerr.KindNetworkID, err)
	}
	return out.NetworkID, nil
}

func (c *HTTPClient) TokenBalancesFor(ctx context.Context, address string) (*TokenBalances, error) {
	var out TokenBalances
	req := map[string]string{"address": address}
	if err := c.post(ctx, "/account/balances", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindTokenBalances, err)
	}
	return &out, nil
}

func (c *HTTPClient) TransactionHistory(ctx context.Context, address, cursor string, size int) (*TxHistoryPage, error) {
	var out TxHistoryPage
	req := map[string]interface{}{"address": address, "cursor": cursor, "size": size}
	if err := c.post(ctx, "/account/history", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindTransactionHistory, err)
	}
	return &out, nil
}

func (c *HTTPClient) NativeToken(ctx context.Context) (*TokenInfo, error) {
	var out TokenInfo
	if err := c.post(ctx, "/token/native", nil, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindNativeToken, err)
	}
	return &out, nil
}

func (c *HTTPClient) TokenInfo(ctx context.Context, rri string) (*TokenInfo, error) {
	var out TokenInfo
	req := map[string]string{"rri": rri}
	if err := c.post(ctx, "/token/info", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindTokenInfo, err)
	}
	return &out, nil
}

func (c *HTTPClient) StakesFor(ctx context.Context, address string) ([]StakePosition, error) {
	var out struct {
		Stakes []StakePosition `json:"stakes"`
	}
	req := map[string]string{"address": address}
	if err := c.post(ctx, "/account/stakes", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindStakesForAddress, err)
	}
	return out.Stakes, nil
}

func (c *HTTPClient) UnstakesFor(ctx context.Context, address string) ([]StakePosition, error) {
	var out struct {
		Unstakes []StakePosition `json:"unstakes"`
	}
	req := map[string]string{"address": address}
	if err := c.post(ctx, "/account/unstakes", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindUnstakesForAddress, err)
	}
	return out.Unstakes, nil
}

func (c *HTTPClient) Validators(ctx context.Context) ([]Validator, error) {
	var out struct {
		Validators []Validator `json:"validators"`
	}
	if err := c.post(ctx, "/validators/list", nil, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindValidators, err)
	}
	return out.Validators, nil
}

func (c *HTTPClient) LookupValidator(ctx context.Context, addr string) (*Validator, error) {
	var out Validator
	req := map[string]string{"address": addr}
	if err := c.post(ctx, "/validators/lookup", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindLookupValidator, err)
	}
	return &out, nil
}

func (c *HTTPClient) LookupTransaction(ctx context.Context, txID string) (*TxRecord, error) {
	var out TxRecord
	req := map[string]string{"txID": txID}
	if err := c.post(ctx, "/transaction/lookup", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindLookupTransaction, err)
	}
	return &out, nil
}

func (c *HTTPClient) TransactionStatus(ctx context.Context, txID string) (*model.TransactionStatus, error) {
	var out model.TransactionStatus
	req := map[string]string{"txID": txID}
	if err := c.post(ctx, "/transaction/status", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindTransactionStatus, err)
	}
	return &out, nil
}

func (c *HTTPClient) NetworkThroughput(ctx context.Context) (float64, error) {
	var out struct {
		TPS float64 `json:"tps"`
	}
	if err := c.post(ctx, "/network/throughput", nil, &out); err != nil {
		return 0, rerr.Wrap(rerr.KindNetworkTxThroughput, err)
	}
	return out.TPS, nil
}

func (c *HTTPClient) NetworkDemand(ctx context.Context) (float64, error) {
	var out struct {
		Demand float64 `json:"demand"`
	}
	if err := c.post(ctx, "/network/demand", nil, &out); err != nil {
		return 0, rerr.Wrap(rerr.KindNetworkTxDemand, err)
	}
	return out.Demand, nil
}

func (c *HTTPClient) BuildTransaction(ctx context.Context, intent model.Intent, sender string) (*model.BuiltTransaction, error) {
	var out model.BuiltTransaction
	req := map[string]interface{}{"intent": intent, "sender": sender}
	if err := c.post(ctx, "/transaction/build", req, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindBuildTxFromIntent, err)
	}
	return &out, nil
}

func (c *HTTPClient) FinalizeTransaction(ctx context.Context, signed model.SignedTransaction) (*model.FinalizedTransaction, error) {
	var out model.FinalizedTransaction
	if err := c.post(ctx, "/transaction/finalize", signed, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindFinalizeTx, err)
	}
	return &out, nil
}

func (c *HTTPClient) SubmitSignedTransaction(ctx context.Context, finalized model.FinalizedTransaction) (*model.PendingTransaction, error) {
	var out model.PendingTransaction
	if err := c.post(ctx, "/transaction/submit", finalized, &out); err != nil {
		return nil, rerr.Wrap(rerr.KindSubmitSignedTx, err)
	}
	return &out, nil
}

var _ Client = (*HTTPClient)(nil)
