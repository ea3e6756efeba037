package transport

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/smartcontractkit/evm-revert-decoder/config"
	"github.com/smartcontractkit/evm-revert-decoder/pkg/logger"
)

// ErrNoRPCURL is returned by Dial when no RPC endpoint is configured.
var ErrNoRPCURL = errors.New("no RPC URL configured")

const (
	defaultRetryAttempts uint = 3
	defaultRetryDelay         = 500 * time.Millisecond
)

// Reader is the part of an EVM client used to replay transactions. *ethclient.Client satisfies it.
type Reader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client replays failed transactions for the decoder. Transaction lookups are retried since
// load balanced nodes often lag behind the node that returned the receipt. Calls are not retried,
// their error is the result.
type Client struct {
	reader   Reader
	attempts uint
	delay    time.Duration
	lggr     logger.Logger
	closeFn  func()
}

// New wraps reader. Zero retry settings fall back to the defaults.
func New(reader Reader, cfg config.TransportConfig, lggr logger.Logger) *Client {
	if lggr == nil {
		lggr = logger.Nop()
	}

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = defaultRetryAttempts
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &Client{
		reader:   reader,
		attempts: attempts,
		delay:    delay,
		lggr:     lggr.Named("transport"),
	}
}

// Dial connects to cfg.RPCURL.
func Dial(ctx context.Context, cfg config.TransportConfig, lggr logger.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, ErrNoRPCURL
	}

	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	ec := ethclient.NewClient(rpcClient)

	c := New(ec, cfg, lggr)
	c.closeFn = ec.Close

	return c, nil
}

// Close releases the underlying connection of a dialed client.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

type txLookup struct {
	tx      *types.Transaction
	pending bool
}

// TransactionByHash fetches a transaction, retrying failed lookups.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	res, err := retry.DoWithData(func() (txLookup, error) {
		tx, pending, err := c.reader.TransactionByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return txLookup{}, retry.Unrecoverable(err)
			}

			return txLookup{}, err
		}

		return txLookup{tx: tx, pending: pending}, nil
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.lggr.Debugw("Retrying transaction lookup", "txHash", hash.Hex(), "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction %s: %w", hash.Hex(), err)
	}

	return res.tx, res.pending, nil
}

// CallContract executes call against the state at blockNumber.
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.reader.CallContract(ctx, call, blockNumber)
}
