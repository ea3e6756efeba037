package decoder

import "math/big"

// panicReasons maps Solidity panic codes to a human readable reason.
//
// https://docs.soliditylang.org/en/latest/control-structures.html#panic-via-assert-and-error-via-require
var panicReasons = map[uint64]string{
	0x00: "Generic compiler inserted panic",
	0x01: "Assertion error",
	0x11: "Arithmetic operation underflowed or overflowed outside of an unchecked block",
	0x12: "Division or modulo division by zero",
	0x21: "Tried to convert a value into an enum, but the value was too big or negative",
	0x22: "Incorrectly encoded storage byte array",
	0x31: ".pop() was called on an empty array",
	0x32: "Array accessed at an out-of-bounds or negative index",
	0x41: "Too much memory was allocated, or an array was created that is too large",
	0x51: "Called a zero-initialized variable of internal function type",
}

const unknownPanicCode = "Unknown panic code"

// PanicReason returns the reason for a panic code, and false if the code is not known.
func PanicReason(code *big.Int) (string, bool) {
	if code == nil || !code.IsUint64() {
		return "", false
	}

	reason, ok := panicReasons[code.Uint64()]

	return reason, ok
}
