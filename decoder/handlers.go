package decoder

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/smartcontractkit/mcms/sdk/evm"
)

var (
	revertSelector = SelectorFromSignature("Error(string)")  // 0x08c379a0
	panicSelector  = SelectorFromSignature("Panic(uint256)") // 0x4e487b71

	revertArgs = abi.Arguments{{Type: mustNewType("string")}}
	panicArgs  = abi.Arguments{{Name: "code", Type: mustNewType("uint256")}}
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}

	return typ
}

// Handler classifies a revert payload. Handlers are evaluated in order and the first one whose
// Predicate matches produces the result through Handle. Results are normalized afterwards, so a
// handler only needs to set the fields it knows about.
type Handler interface {
	// Predicate reports whether the handler decodes payload. payload is "" when the error carried
	// no revert data.
	Predicate(payload string, rawErr any) bool
	// Handle decodes payload into a partial result.
	Handle(payload string, hctx HandlerContext) DecodedError
}

// HandlerContext is passed to Handle.
type HandlerContext struct {
	// Registry resolves custom error selectors. It is never nil.
	Registry *Registry
	// RawError is the error passed to Decode.
	RawError any

	depth    int
	classify func(payload string, rawErr any, depth int) DecodedError
	maxDepth int
}

// HandlerFuncs adapts a pair of functions to the Handler interface.
type HandlerFuncs struct {
	PredicateFunc func(payload string, rawErr any) bool
	HandleFunc    func(payload string, hctx HandlerContext) DecodedError
}

// Predicate implements Handler.
func (h HandlerFuncs) Predicate(payload string, rawErr any) bool {
	if h.PredicateFunc == nil || h.HandleFunc == nil {
		return false
	}

	return h.PredicateFunc(payload, rawErr)
}

// Handle implements Handler.
func (h HandlerFuncs) Handle(payload string, hctx HandlerContext) DecodedError {
	return h.HandleFunc(payload, hctx)
}

// builtinHandlers returns the fixed classification chain. The order matters: the empty payload
// must never be treated as a custom error, and the standard selectors must be checked before the
// custom error catch-all.
func builtinHandlers(markers []string) []Handler {
	return []Handler{
		HandlerFuncs{PredicateFunc: isEmptyPayload, HandleFunc: handleEmpty},
		HandlerFuncs{PredicateFunc: isRevertPayload, HandleFunc: handleRevert},
		HandlerFuncs{PredicateFunc: isPanicPayload, HandleFunc: handlePanic},
		HandlerFuncs{PredicateFunc: isCustomPayload, HandleFunc: handleCustom},
		userRejectHandler{markers: markers},
		rpcHandler{markers: markers},
	}
}

func isEmptyPayload(payload string, _ any) bool {
	return payload == emptyPayload
}

func handleEmpty(payload string, _ HandlerContext) DecodedError {
	return DecodedError{Kind: KindEmpty, Data: payload}
}

func isRevertPayload(payload string, _ any) bool {
	return hasSelector(payload, revertSelector)
}

func handleRevert(payload string, _ HandlerContext) DecodedError {
	data, err := hexutil.Decode(payload)
	if err != nil {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadRevert, Data: payload}
	}

	vals, err := revertArgs.Unpack(data[4:])
	if err != nil || len(vals) != 1 {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadRevert, Data: payload}
	}

	reason, ok := vals[0].(string)
	if !ok {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadRevert, Data: payload}
	}

	return DecodedError{
		Kind:      KindRevert,
		Reason:    reason,
		Data:      payload,
		Selector:  revertSelector.String(),
		Name:      "Error",
		Signature: "Error(string)",
		Args:      newArgs(revertArgs, vals),
	}
}

func isPanicPayload(payload string, _ any) bool {
	return hasSelector(payload, panicSelector)
}

func handlePanic(payload string, _ HandlerContext) DecodedError {
	data, err := hexutil.Decode(payload)
	if err != nil {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadPanic, Data: payload}
	}

	vals, err := panicArgs.Unpack(data[4:])
	if err != nil || len(vals) != 1 {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadPanic, Data: payload}
	}

	code, ok := vals[0].(*big.Int)
	if !ok {
		return DecodedError{Kind: KindUnknown, Reason: reasonBadPanic, Data: payload}
	}

	reason, known := PanicReason(code)
	if !known {
		reason = unknownPanicCode
	}

	return DecodedError{
		Kind:      KindPanic,
		Reason:    reason,
		Data:      payload,
		Selector:  panicSelector.String(),
		Name:      "Panic",
		Signature: "Panic(uint256)",
		Args:      newArgs(panicArgs, vals),
	}
}

func isCustomPayload(payload string, _ any) bool {
	return payload != "" &&
		payload != emptyPayload &&
		!hasSelector(payload, revertSelector) &&
		!hasSelector(payload, panicSelector)
}

func handleCustom(payload string, hctx HandlerContext) DecodedError {
	data, err := hexutil.Decode(payload)
	if err != nil {
		return DecodedError{Kind: KindUnknown, Reason: reasonUnrecognised, Data: payload}
	}

	// Shorter than a selector: nothing to look up, the payload itself names the error.
	if len(data) < 4 {
		return DecodedError{Kind: KindCustom, Data: payload}
	}

	var sel Selector
	copy(sel[:], data[:4])

	sig, ok := hctx.Registry.Lookup(sel)
	if !ok {
		return DecodedError{Kind: KindCustom, Data: payload, Selector: sel.String()}
	}

	vals, err := sig.Inputs.Unpack(data[4:])
	if err != nil {
		return DecodedError{
			Kind:      KindUnknown,
			Reason:    reasonBadCustom,
			Data:      payload,
			Selector:  sel.String(),
			Name:      sig.Name,
			Signature: sig.Signature(),
		}
	}

	return DecodedError{
		Kind:      KindCustom,
		Reason:    sig.Name,
		Data:      payload,
		Selector:  sel.String(),
		Name:      sig.Name,
		Signature: sig.Signature(),
		Args:      newArgs(sig.Inputs, vals),
		Inner:     hctx.unwrap(vals),
	}
}

// unwrap decodes the revert carried by a custom error whose only argument is a bytes payload, as
// produced by contracts that forward the revert of a call they made.
func (hctx HandlerContext) unwrap(vals []any) *DecodedError {
	if len(vals) != 1 || hctx.classify == nil || hctx.depth >= hctx.maxDepth {
		return nil
	}

	inner, ok := vals[0].([]byte)
	if !ok || len(inner) < 4 {
		return nil
	}

	res := hctx.classify(hexutil.Encode(inner), hctx.RawError, hctx.depth+1)

	return &res
}

type userRejectHandler struct {
	markers []string
}

func (h userRejectHandler) Predicate(payload string, rawErr any) bool {
	return payload == "" && containsAny(messageOf(rawErr), h.markers)
}

func (h userRejectHandler) Handle(_ string, hctx HandlerContext) DecodedError {
	return DecodedError{Kind: KindUserReject, Reason: messageOf(hctx.RawError)}
}

type rpcHandler struct {
	markers []string
}

func (h rpcHandler) Predicate(payload string, rawErr any) bool {
	if payload != "" {
		return false
	}

	msg := messageOf(rawErr)
	if msg == "" || containsAny(msg, h.markers) {
		return false
	}

	_, ok := codeOf(rawErr)

	return ok
}

func (h rpcHandler) Handle(_ string, hctx HandlerContext) DecodedError {
	code, _ := codeOf(hctx.RawError)

	reason := infoMessageOf(hctx.RawError)
	if reason == "" {
		reason = shortMessageOf(hctx.RawError)
	}
	if reason == "" {
		reason = messageOf(hctx.RawError)
	}

	return DecodedError{Kind: KindRPC, Reason: reason, Name: string(code)}
}

const revertMessageMarker = "execution reverted:"

// RevertMessageHandler recovers the revert reason from errors that only carry it as text, e.g.
// "execution reverted: Ownable: caller is not the owner". It is not part of the default chain and
// can be added with WithHandlers.
func RevertMessageHandler() Handler {
	return HandlerFuncs{
		PredicateFunc: func(payload string, rawErr any) bool {
			return payload == "" && revertMessage(messageOf(rawErr)) != ""
		},
		HandleFunc: func(_ string, hctx HandlerContext) DecodedError {
			reason := revertMessage(messageOf(hctx.RawError))

			return DecodedError{
				Kind:      KindRevert,
				Reason:    reason,
				Name:      "Error",
				Signature: "Error(string)",
				Selector:  revertSelector.String(),
				Args:      newArgs(revertArgs, []any{reason}),
			}
		},
	}
}

func revertMessage(msg string) string {
	_, after, found := strings.Cut(msg, revertMessageMarker)
	if !found {
		return ""
	}

	return strings.TrimSpace(after)
}

// hasSelector reports whether a hex payload starts with sel, ignoring hex digit case.
func hasSelector(payload string, sel Selector) bool {
	prefix := sel.String()

	return len(payload) >= len(prefix) && strings.EqualFold(payload[:len(prefix)], prefix)
}

func containsAny(s string, markers []string) bool {
	if s == "" {
		return false
	}

	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}

	return false
}

// errorShaped reports whether raw is something Decode can classify beyond the unexpected-input
// fallback.
func errorShaped(raw any) bool {
	switch t := raw.(type) {
	case *evm.ExecutionError:
		return t != nil
	case error:
		return t != nil
	default:
		return false
	}
}

// messageOf returns the message of raw. Maps only expose a "message" string key.
func messageOf(raw any) string {
	switch t := raw.(type) {
	case nil:
		return ""
	case *evm.ExecutionError:
		return executionErrorMessage(t)
	case error:
		var execErr *evm.ExecutionError
		if errors.As(t, &execErr) && execErr != nil {
			if msg := executionErrorMessage(execErr); msg != "" {
				return msg
			}
		}

		return t.Error()
	case map[string]any:
		msg, _ := t["message"].(string)
		return msg
	default:
		return ""
	}
}

// executionErrorMessage returns the reason MCMS already decoded, preferring the revert reason.
func executionErrorMessage(e *evm.ExecutionError) string {
	if e == nil {
		return ""
	}
	if e.RevertReasonDecoded != "" {
		return e.RevertReasonDecoded
	}

	return e.UnderlyingReasonDecoded
}

// codeOf returns the provider error code of raw.
func codeOf(raw any) (ErrorCode, bool) {
	err, ok := raw.(error)
	if !ok || err == nil {
		return "", false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe != nil && pe.Code != "" {
		return pe.Code, true
	}

	var re rpc.Error
	if errors.As(err, &re) {
		return codeString(re.ErrorCode()), true
	}

	return "", false
}

func shortMessageOf(raw any) string {
	err, ok := raw.(error)
	if !ok || err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe != nil {
		return pe.ShortMessage
	}

	return ""
}

func infoMessageOf(raw any) string {
	err, ok := raw.(error)
	if !ok || err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.infoMessage()
	}

	return ""
}
