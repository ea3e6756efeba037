package decoder

import (
	"fmt"
	"strings"
)

const (
	emptyPayload = "0x"

	reasonUnknown         = "Unknown error"
	reasonUnexpected      = "Unexpected error"
	reasonUnrecognised    = "Unrecognised error"
	reasonUserReject      = "User has rejected the transaction"
	reasonRPC             = "Error from JSON RPC provider"
	reasonBadRevert       = "unknown error returned"
	reasonBadPanic        = "unknown panic error"
	reasonBadCustom       = "unknown custom error"
	reasonNoABIForCustom  = "No ABI for custom error "
	customSelectorHexSize = 10 // "0x" + 4 bytes
)

// DecodedError is the structured description of why a contract call failed. It is a value type,
// a DecodedError returned by Decode is never modified afterwards.
//
// Empty strings stand for absent values: Data is "" when no payload was found ("0x" is the empty
// payload), Reason is "" only for KindEmpty.
type DecodedError struct {
	Kind ErrorKind
	// Reason is the human readable cause.
	Reason string
	// Data is the revert payload exactly as supplied by the provider.
	Data string
	// Selector is the 0x prefixed 4 byte selector of the payload.
	Selector string
	// Name is the error name, the selector for unresolved custom errors, or the provider error
	// code for RPC errors.
	Name string
	// Signature is the canonical signature of the resolved error, e.g. "Error(string)".
	Signature string
	// Args holds the decoded arguments, nil when no signature was resolved.
	Args *Args
	// Inner is the decoded revert wrapped by a custom error carrying a single bytes argument.
	Inner *DecodedError
}

// String renders the error as "Kind: Name(args): reason", followed by the wrapped error if any.
func (d DecodedError) String() string {
	var b strings.Builder
	b.WriteString(d.Kind.String())

	if d.Name != "" && d.Args != nil {
		fmt.Fprintf(&b, ": %s(%s)", d.Name, d.Args)
	} else if d.Name != "" {
		fmt.Fprintf(&b, ": %s", d.Name)
	}

	if d.Reason != "" && d.Reason != d.Name {
		fmt.Fprintf(&b, ": %s", d.Reason)
	}

	if d.Inner != nil {
		fmt.Fprintf(&b, " -> %s", d.Inner)
	}

	return b.String()
}

// Error implements the error interface so a DecodedError can be returned or wrapped directly.
func (d DecodedError) Error() string {
	return d.String()
}

// HasData reports whether a revert payload was found.
func (d DecodedError) HasData() bool {
	return d.Data != ""
}

// buildResult normalizes a handler result into the uniform DecodedError shape. Every result,
// including those of caller supplied handlers, goes through it.
func buildResult(partial DecodedError) DecodedError {
	res := partial
	if !res.Kind.IsValid() {
		res.Kind = KindUnknown
	}

	switch res.Kind {
	case KindEmpty:
		// An empty revert has no reason of its own.
	case KindUnknown:
		if res.Reason == "" {
			res.Reason = reasonUnknown
		}
	case KindUserReject:
		if res.Reason == "" {
			res.Reason = reasonUserReject
		}
		res.Data = ""
	case KindRPC:
		if res.Reason == "" {
			res.Reason = reasonRPC
		}
		res.Data = ""
	case KindCustom:
		if res.Selector == "" {
			res.Selector = payloadSelector(res.Data)
		}
		if res.Name == "" {
			res.Name = res.Selector
		}
		if res.Reason == "" {
			res.Reason = reasonNoABIForCustom + res.Selector
		}
	case KindRevert, KindPanic:
	}

	if res.Args == nil && res.Kind.hasArgs() {
		res.Args = emptyArgs()
	}

	return res
}

// payloadSelector returns the leading selector text of a hex payload, or the whole payload when it
// is shorter than a selector.
func payloadSelector(payload string) string {
	if len(payload) <= customSelectorHexSize {
		return strings.ToLower(payload)
	}

	return strings.ToLower(payload[:customSelectorHexSize])
}
