package decoder

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/smartcontractkit/mcms/sdk/evm"

	"github.com/smartcontractkit/evm-revert-decoder/pkg/logger"
)

// Transport re-executes a mined transaction as a call. *ethclient.Client satisfies it, as does
// the retrying client in chain/evm/transport.
type Transport interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// maxDataDepth bounds how many nested "data" objects are unwrapped when looking for a payload:
// data, data.data and data.data.data.
const maxDataDepth = 2

var noSelector [4]byte

// extractor resolves the revert payload of a raw error.
type extractor struct {
	transport Transport
	replay    bool
	lggr      logger.Logger
}

// extract returns the revert payload of raw, or "" when there is none. It never fails: any shape
// mismatch, transport failure or cancellation resolves to an absent payload.
func (x *extractor) extract(ctx context.Context, raw any) string {
	effective := raw

	if err, ok := raw.(error); ok && err != nil {
		replayErr, replayed := x.replayReceipt(ctx, err)
		if ctx.Err() != nil || isContextErr(replayErr) {
			return ""
		}
		if replayed {
			effective = replayErr
		}
	}

	return payloadOf(effective)
}

// replayReceipt re-executes the transaction of a failed receipt carried by err. It returns the
// error raised by the replay and true, or false when no replay happened or the replay succeeded.
func (x *extractor) replayReceipt(ctx context.Context, err error) (error, bool) {
	var rerr ReceiptError
	if !errors.As(err, &rerr) {
		return nil, false
	}

	receipt := rerr.FailedReceipt()
	// A successful transaction has nothing to resolve.
	if receipt == nil || receipt.Status != types.ReceiptStatusFailed {
		return nil, false
	}

	transport := x.transport
	var pe *ProviderError
	if errors.As(err, &pe) && pe != nil && pe.Transport != nil {
		transport = pe.Transport
	}

	if !x.replay || transport == nil {
		return nil, false
	}

	lggr := x.lggr.Named("replay")

	tx, _, txErr := transport.TransactionByHash(ctx, receipt.TxHash)
	if txErr != nil {
		lggr.Warnw("Failed to fetch reverted transaction, decoding original error",
			"txHash", receipt.TxHash.Hex(), "err", txErr)

		return nil, false
	}
	if tx == nil {
		lggr.Warnw("Transport returned no transaction, decoding original error", "txHash", receipt.TxHash.Hex())

		return nil, false
	}

	lggr.Debugw("Replaying reverted transaction", "txHash", receipt.TxHash.Hex(), "block", receipt.BlockNumber)

	_, callErr := transport.CallContract(ctx, callMsgFromTx(tx), receipt.BlockNumber)
	if callErr == nil {
		lggr.Debugw("Replay succeeded, decoding original error", "txHash", receipt.TxHash.Hex())

		return nil, false
	}

	return callErr, true
}

// callMsgFromTx builds the call replaying tx. Gas price fields are left unset so that fee market
// changes since inclusion cannot fail the replay for unrelated reasons.
func callMsgFromTx(tx *types.Transaction) ethereum.CallMsg {
	signer := types.LatestSignerForChainID(tx.ChainId())
	from, err := types.Sender(signer, tx)
	if err != nil {
		// Unsigned or unrecoverable: replay from the zero address.
		from = common.Address{}
	}

	return ethereum.CallMsg{
		From:       from,
		To:         tx.To(),
		Gas:        tx.Gas(),
		Value:      tx.Value(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// payloadOf looks for revert data on the error: direct data first, then the nested provider
// error's data.
func payloadOf(raw any) string {
	switch t := raw.(type) {
	case nil:
		return ""
	case error:
		var execErr *evm.ExecutionError
		if errors.As(t, &execErr) {
			return executionErrorPayload(execErr)
		}

		var pe *ProviderError
		if errors.As(t, &pe) && pe != nil {
			if p := dataString(pe.Data, maxDataDepth); p != "" {
				return p
			}
			if pe.Err != nil {
				if p := dataString(pe.Err.Data, maxDataDepth); p != "" {
					return p
				}
			}
		}

		var de rpc.DataError
		if errors.As(t, &de) {
			return dataString(de.ErrorData(), maxDataDepth)
		}

		return ""
	default:
		return ""
	}
}

// dataString returns v as a hex payload. Strings are returned as-is, byte slices are hex encoded
// and objects are unwrapped through their "data" key up to depth times.
func dataString(v any, depth int) string {
	switch t := v.(type) {
	case string:
		return t
	case hexutil.Bytes:
		if t == nil {
			return ""
		}

		return hexutil.Encode(t)
	case []byte:
		if t == nil {
			return ""
		}

		return hexutil.Encode(t)
	case map[string]any:
		if depth <= 0 {
			return ""
		}

		return dataString(t["data"], depth-1)
	case *ProviderError:
		if t == nil || depth <= 0 {
			return ""
		}

		return dataString(t.Data, depth-1)
	default:
		return ""
	}
}

// executionErrorPayload returns the revert data of an MCMS execution error, preferring the raw
// revert reason over the underlying reason.
func executionErrorPayload(e *evm.ExecutionError) string {
	if e == nil {
		return ""
	}

	if raw := e.RevertReasonRaw; raw != nil {
		if len(raw.Data) >= 4 {
			return hexutil.Encode(raw.Data)
		}
		if raw.Selector != noSelector {
			return hexutil.Encode(raw.Combined())
		}
	}

	return e.UnderlyingReasonRaw
}
