package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRPCRequest struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type testRPCServer struct {
	accounts map[string][]byte
	owner    ed25519.PublicKey
	methods  []string
}

func (s *testRPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req testRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.methods = append(s.methods, req.Method)

	account := func(key string) interface{} {
		data, ok := s.accounts[key]
		if !ok {
			return nil
		}
		return map[string]interface{}{
			"lamports":   1000,
			"owner":      base58.Encode(s.owner),
			"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
			"executable": false,
		}
	}

	var result interface{}
	switch req.Method {
	case "getAccountInfo":
		var key string
		_ = json.Unmarshal(req.Params[0], &key)
		result = map[string]interface{}{
			"context": map[string]interface{}{"slot": 42},
			"value":   account(key),
		}
	case "getMultipleAccounts":
		var keys []string
		_ = json.Unmarshal(req.Params[0], &keys)
		values := make([]interface{}, len(keys))
		for i, key := range keys {
			values[i] = account(key)
		}
		result = map[string]interface{}{
			"context": map[string]interface{}{"slot": 43},
			"value":   values,
		}
	case "getMinimumBalanceForRentExemption":
		result = 890880
	case "getSlot":
		result = 100
	default:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func newTestClient(t *testing.T) (Client, *testRPCServer, ed25519.PublicKey) {
	existing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	rpc := &testRPCServer{
		accounts: map[string][]byte{
			base58.Encode(existing): {1, 2, 3},
		},
		owner: owner,
	}
	server := httptest.NewServer(rpc)
	t.Cleanup(server.Close)

	return New(server.URL), rpc, existing
}

func TestClient_GetAccountInfo(t *testing.T) {
	client, rpc, existing := newTestClient(t)

	info, err := client.GetAccountInfo(context.Background(), existing, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)
	assert.Equal(t, rpc.owner, info.Owner)
	assert.EqualValues(t, 1000, info.Lamports)
	assert.EqualValues(t, 42, info.Slot)

	missing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = client.GetAccountInfo(context.Background(), missing, CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetMultipleAccounts(t *testing.T) {
	client, _, existing := newTestClient(t)

	missing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	infos, err := client.GetMultipleAccounts(context.Background(), []ed25519.PublicKey{missing, existing}, CommitmentFinalized)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Nil(t, infos[0])
	require.NotNil(t, infos[1])
	assert.Equal(t, []byte{1, 2, 3}, infos[1].Data)
	assert.EqualValues(t, 43, infos[1].Slot)
}

func TestClient_Misc(t *testing.T) {
	client, rpc, _ := newTestClient(t)

	lamports, err := client.GetMinimumBalanceForRentExemption(context.Background(), 165)
	require.NoError(t, err)
	assert.EqualValues(t, 890880, lamports)

	slot, err := client.GetSlot(context.Background(), CommitmentProcessed)
	require.NoError(t, err)
	assert.EqualValues(t, 100, slot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetSlot(ctx, CommitmentProcessed)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"getMinimumBalanceForRentExemption", "getSlot"}, rpc.methods)
}

func TestCommitmentFromString(t *testing.T) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		actual, err := CommitmentFromString(c.Commitment)
		require.NoError(t, err)
		assert.Equal(t, c, actual)
	}

	_, err := CommitmentFromString("max")
	assert.Error(t, err)
}
