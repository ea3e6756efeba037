package decoder

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

const customErrorsABI = `[
	{"type":"error","name":"CustomErrorNoParam","inputs":[]},
	{"type":"error","name":"CustomErrorWithParams","inputs":[
		{"name":"param1","type":"address"},
		{"name":"param2","type":"uint256"}]},
	{"type":"error","name":"CallReverted","inputs":[{"name":"data","type":"bytes"}]},
	{"type":"function","name":"transfer","inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
]`

func mustType(t *testing.T, typ string) abi.Type {
	t.Helper()
	ty, err := abi.NewType(typ, "", nil)
	require.NoError(t, err)

	return ty
}

func withParamsArgs(t *testing.T) abi.Arguments {
	t.Helper()

	return abi.Arguments{
		{Name: "param1", Type: mustType(t, "address")},
		{Name: "param2", Type: mustType(t, "uint256")},
	}
}

func buildCustomErrorRevert(t *testing.T, sig string, args abi.Arguments, vals ...any) []byte {
	t.Helper()
	enc, err := args.Pack(vals...)
	require.NoError(t, err)
	sel := SelectorFromSignature(sig)

	return append(sel[:], enc...)
}

func buildStdErrorRevert(t *testing.T, msg string) []byte {
	t.Helper()

	return buildCustomErrorRevert(t, "Error(string)", abi.Arguments{{Type: mustType(t, "string")}}, msg)
}

func buildPanicRevert(t *testing.T, code int64) []byte {
	t.Helper()

	return buildCustomErrorRevert(t, "Panic(uint256)", abi.Arguments{{Type: mustType(t, "uint256")}}, big.NewInt(code))
}

type bytesDataError struct{ b []byte }

func (e bytesDataError) Error() string  { return "execution reverted" }
func (e bytesDataError) ErrorData() any { return e.b }

type mapDataError struct{ data map[string]any }

func (e mapDataError) Error() string  { return "map data err" }
func (e mapDataError) ErrorData() any { return e.data }

// jsonError mimics the error go-ethereum's rpc client returns for JSON-RPC error responses.
type jsonError struct {
	code int
	msg  string
	data any
}

func (e jsonError) Error() string  { return e.msg }
func (e jsonError) ErrorCode() int { return e.code }
func (e jsonError) ErrorData() any { return e.data }

// receiptError is a client library error carrying the receipt of a mined transaction.
type receiptError struct {
	msg     string
	receipt *types.Receipt
}

func (e receiptError) Error() string                 { return e.msg }
func (e receiptError) FailedReceipt() *types.Receipt { return e.receipt }

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	args := m.Called(ctx, hash)

	var tx *types.Transaction
	if v := args.Get(0); v != nil {
		tx = v.(*types.Transaction)
	}

	return tx, args.Bool(1), args.Error(2)
}

func (m *mockTransport) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	args := m.Called(ctx, call, blockNumber)

	var out []byte
	if v := args.Get(0); v != nil {
		out = v.([]byte)
	}

	return out, args.Error(1)
}

func failedReceipt(txHash common.Hash, block int64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		TxHash:      txHash,
		BlockNumber: big.NewInt(block),
	}
}

func testTx() *types.Transaction {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     1,
		To:        &to,
		Gas:       50000,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Value:     big.NewInt(7),
		Data:      []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
}
