package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrorCode is a provider error code. JSON-RPC providers use numbers, some client libraries use
// strings such as "CALL_EXCEPTION". Both decode into their textual form.
type ErrorCode string

// UnmarshalJSON accepts a JSON number or string.
func (c *ErrorCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ErrorCode(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("error code must be a number or string: %w", err)
	}
	*c = ErrorCode(n.String())

	return nil
}

// ErrorInfo carries the provider's own error object, as nested by some client libraries.
type ErrorInfo struct {
	Error *struct {
		Code    ErrorCode `json:"code,omitempty"`
		Message string    `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// ProviderError is the JSON shape of errors produced by RPC providers and client libraries. Data
// may be a hex string or a nested object with its own "data" key, the nested Err holds the
// provider's inner error object.
type ProviderError struct {
	Message      string         `json:"message,omitempty"`
	ShortMessage string         `json:"shortMessage,omitempty"`
	Code         ErrorCode      `json:"code,omitempty"`
	Data         any            `json:"data,omitempty"`
	Err          *ProviderError `json:"error,omitempty"`
	Info         *ErrorInfo     `json:"info,omitempty"`
	// Receipt is decoded from the "receipt" object. Only its status, transaction hash and block
	// number are read, so partial client library receipts are accepted.
	Receipt *types.Receipt `json:"-"`

	// Transport replays the failed transaction of Receipt. It takes precedence over the decoder's.
	Transport Transport `json:"-"`
}

// ParseProviderError parses a provider error object from JSON.
func ParseProviderError(b []byte) (*ProviderError, error) {
	var pe ProviderError
	if err := json.Unmarshal(b, &pe); err != nil {
		return nil, fmt.Errorf("unmarshal provider error: %w", err)
	}

	return &pe, nil
}

// UnmarshalJSON decodes a provider error, reading the receipt through receiptJSON.
func (e *ProviderError) UnmarshalJSON(b []byte) error {
	type plain ProviderError
	aux := struct {
		*plain
		Receipt *receiptJSON `json:"receipt,omitempty"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	receipt, err := aux.Receipt.toReceipt()
	if err != nil {
		return fmt.Errorf("receipt: %w", err)
	}
	e.Receipt = receipt

	return nil
}

// receiptJSON is the subset of a receipt needed to replay its transaction. Quantities may be JSON
// numbers, hex strings or decimal strings. The hash is "transactionHash", or "hash" in newer client
// libraries.
type receiptJSON struct {
	Status          json.RawMessage `json:"status"`
	TransactionHash string          `json:"transactionHash"`
	Hash            string          `json:"hash"`
	BlockNumber     json.RawMessage `json:"blockNumber"`
}

// toReceipt returns nil for a missing receipt or one without a status, since neither can be
// known to have failed.
func (r *receiptJSON) toReceipt() (*types.Receipt, error) {
	if r == nil {
		return nil, nil
	}

	status, err := parseQuantity(r.Status)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if status == nil {
		return nil, nil
	}

	block, err := parseQuantity(r.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("blockNumber: %w", err)
	}

	hash := r.TransactionHash
	if hash == "" {
		hash = r.Hash
	}

	return &types.Receipt{
		Status:      status.Uint64(),
		TxHash:      common.HexToHash(hash),
		BlockNumber: block,
	}, nil
}

// parseQuantity decodes a JSON number, a 0x-prefixed hex string or a decimal string. Null and
// absent values decode to nil.
func parseQuantity(raw json.RawMessage) (*big.Int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	text, base := string(raw), 10
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
			text, base = text[2:], 16
		}
	}

	n, ok := new(big.Int).SetString(text, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity %s", raw)
	}

	return n, nil
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.ShortMessage != "":
		return e.ShortMessage
	default:
		return ""
	}
}

// FailedReceipt implements ReceiptError.
func (e *ProviderError) FailedReceipt() *types.Receipt {
	if e == nil {
		return nil
	}

	return e.Receipt
}

// infoMessage returns the message of the provider's own error object, if any.
func (e *ProviderError) infoMessage() string {
	if e == nil || e.Info == nil || e.Info.Error == nil {
		return ""
	}

	return e.Info.Error.Message
}

// ReceiptError is implemented by errors that carry the receipt of a mined transaction.
type ReceiptError interface {
	error
	FailedReceipt() *types.Receipt
}

// codeString formats an integer JSON-RPC code.
func codeString(code int) ErrorCode {
	return ErrorCode(strconv.Itoa(code))
}
