package decoder

// ErrorKind classifies a decoded failure.
type ErrorKind string

const (
	// KindEmpty is a revert without any return data.
	KindEmpty ErrorKind = "EmptyError"
	// KindRevert is a revert with an Error(string) reason.
	KindRevert ErrorKind = "RevertError"
	// KindPanic is a compiler inserted Panic(uint256) check failure.
	KindPanic ErrorKind = "PanicError"
	// KindCustom is a contract defined custom error.
	KindCustom ErrorKind = "CustomError"
	// KindUserReject is a transaction rejected by the user in their wallet.
	KindUserReject ErrorKind = "UserRejectError"
	// KindRPC is an error returned by the JSON-RPC provider rather than the contract.
	KindRPC ErrorKind = "RpcError"
	// KindUnknown is anything that could not be classified.
	KindUnknown ErrorKind = "UnknownError"
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the known kinds.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindEmpty, KindRevert, KindPanic, KindCustom, KindUserReject, KindRPC, KindUnknown:
		return true
	default:
		return false
	}
}

// hasArgs reports whether results of kind k always carry an argument list.
func (k ErrorKind) hasArgs() bool {
	return k == KindEmpty || k == KindRevert || k == KindPanic
}
