package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/crispyspin/crispyspin-backend/pkg/config"
)

const defaultVerifyTimeout = 10 * time.Second

// Receipt is the payment source's view of one transaction.
type Receipt struct {
	Exists      bool   `json:"exists"`
	StatusOK    bool   `json:"statusOk"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// Verifier looks up a payment reference. A missing transaction is a Receipt
// with Exists=false; errors are reserved for transport failures.
type Verifier interface {
	Verify(ctx context.Context, txHash string) (*Receipt, error)
}

type rpcCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// VerifierOptions bounds RPC usage.
type VerifierOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// RPCVerifier reads receipts over Ethereum JSON-RPC.
type RPCVerifier struct {
	client  rpcCaller
	timeout time.Duration
	limiter *rate.Limiter
	group   singleflight.Group
}

type rpcReceipt struct {
	Status      hexutil.Uint64  `json:"status"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
}

// DialVerifier connects to the configured RPC endpoint.
func DialVerifier(ctx context.Context, cfg config.ChainConfig) (*RPCVerifier, func(), error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, nil, errors.New("chain rpc url is required")
	}
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	verifier := NewRPCVerifier(client, VerifierOptions{
		Timeout:       cfg.VerifyTimeout,
		RatePerSecond: cfg.RPCRatePerSecond,
		Burst:         cfg.RPCBurst,
	})
	return verifier, client.Close, nil
}

func NewRPCVerifier(client rpcCaller, opts VerifierOptions) *RPCVerifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RPCVerifier{
		client:  client,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Verify fetches the receipt for txHash. Concurrent lookups of the same hash
// share one RPC call.
func (v *RPCVerifier) Verify(ctx context.Context, txHash string) (*Receipt, error) {
	ch := v.group.DoChan(txHash, func() (any, error) {
		return v.fetch(context.WithoutCancel(ctx), txHash)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		receipt := *res.Val.(*Receipt)
		return &receipt, nil
	}
}

func (v *RPCVerifier) fetch(ctx context.Context, txHash string) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rpc rate limit: %w", err)
	}

	var raw *rpcReceipt
	if err := v.client.CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
	}
	if raw == nil {
		return &Receipt{Exists: false}, nil
	}
	receipt := &Receipt{
		Exists:      true,
		StatusOK:    raw.Status == 1,
		From:        strings.ToLower(raw.From.Hex()),
		BlockNumber: uint64(raw.BlockNumber),
	}
	if raw.To != nil {
		receipt.To = strings.ToLower(raw.To.Hex())
	}
	return receipt, nil
}
