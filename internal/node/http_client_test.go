package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixdlt/ledger-core/internal/rerr"
)

func TestHTTPClientNetworkID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network/id", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"networkId": 1})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	id, err := client.NetworkID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestHTTPClientWrapsErrorInDomainKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("node unavailable"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	_, err := client.NetworkID(context.Background())
	require.Error(t, err)
	assert.True(t, rerr.Of(err, rerr.KindNetworkID))
	assert.Contains(t, err.Error(), "node unavailable")
}

func TestHTTPClientTokenBalancesFor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TokenBalances{
			Address:  "rdx1abc",
			Balances: map[string]string{"xrd": "1000"},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	bal, err := client.TokenBalancesFor(context.Background(), "rdx1abc")
	require.NoError(t, err)
	assert.Equal(t, "1000", bal.Balances["xrd"])
}
