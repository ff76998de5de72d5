package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHash = "0xdef0000000000000000000000000000000000000000000000000000000000001"

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []string        `json:"params"`
}

func rpcServer(t *testing.T, delay time.Duration, result func(hash string) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req.Params[0]),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTestVerifier(t *testing.T, url string, timeout time.Duration) *RPCVerifier {
	t.Helper()
	client, err := rpc.DialContext(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return NewRPCVerifier(client, VerifierOptions{Timeout: timeout})
}

func TestRPCVerifierParsesReceipt(t *testing.T) {
	srv := rpcServer(t, 0, func(hash string) any {
		require.Equal(t, sampleHash, hash)
		return map[string]any{
			"status":      "0x1",
			"from":        "0xAbCdEf0000000000000000000000000000000001",
			"to":          "0x9999999999999999999999999999999999999999",
			"blockNumber": "0x1b4",
		}
	})
	verifier := dialTestVerifier(t, srv.URL, time.Second)

	receipt, err := verifier.Verify(context.Background(), sampleHash)
	require.NoError(t, err)
	require.True(t, receipt.Exists)
	require.True(t, receipt.StatusOK)
	require.Equal(t, "0xabcdef0000000000000000000000000000000001", receipt.From)
	require.Equal(t, "0x9999999999999999999999999999999999999999", receipt.To)
	require.Equal(t, uint64(436), receipt.BlockNumber)
}

func TestRPCVerifierMissingAndFailedReceipts(t *testing.T) {
	missing := rpcServer(t, 0, func(string) any { return nil })
	receipt, err := dialTestVerifier(t, missing.URL, time.Second).Verify(context.Background(), sampleHash)
	require.NoError(t, err)
	require.False(t, receipt.Exists)

	reverted := rpcServer(t, 0, func(string) any {
		return map[string]any{"status": "0x0", "from": "0x0000000000000000000000000000000000000001", "blockNumber": "0x1"}
	})
	receipt, err = dialTestVerifier(t, reverted.URL, time.Second).Verify(context.Background(), sampleHash)
	require.NoError(t, err)
	require.True(t, receipt.Exists)
	require.False(t, receipt.StatusOK)
	require.Empty(t, receipt.To)
}

func TestRPCVerifierTimesOut(t *testing.T) {
	slow := rpcServer(t, 2*time.Second, func(string) any { return nil })
	verifier := dialTestVerifier(t, slow.URL, 50*time.Millisecond)

	started := time.Now()
	_, err := verifier.Verify(context.Background(), sampleHash)
	require.Error(t, err)
	require.Less(t, time.Since(started), time.Second)
}

type blockingCaller struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingCaller) CallContext(ctx context.Context, result any, method string, args ...any) error {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return json.Unmarshal([]byte(`{"status":"0x1","from":"0x0000000000000000000000000000000000000001","blockNumber":"0x2"}`), result)
}

func TestRPCVerifierSharesConcurrentLookups(t *testing.T) {
	caller := &blockingCaller{release: make(chan struct{})}
	verifier := NewRPCVerifier(caller, VerifierOptions{Timeout: 5 * time.Second})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Receipt, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipt, err := verifier.Verify(context.Background(), sampleHash)
			assert.NoError(t, err)
			results[i] = receipt
		}(i)
	}
	require.Eventually(t, func() bool { return caller.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(caller.release)
	wg.Wait()

	require.Equal(t, int32(1), caller.calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		require.True(t, r.StatusOK)
		require.Equal(t, uint64(2), r.BlockNumber)
	}
}

func TestRPCVerifierRateLimitFailsClosed(t *testing.T) {
	caller := &blockingCaller{release: make(chan struct{})}
	close(caller.release)
	verifier := NewRPCVerifier(caller, VerifierOptions{Timeout: 20 * time.Millisecond, RatePerSecond: 0.001, Burst: 1})

	_, err := verifier.Verify(context.Background(), sampleHash)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "0xdef0000000000000000000000000000000000000000000000000000000000002")
	require.Error(t, err)
	require.Equal(t, int32(1), caller.calls.Load())
}
