package decoder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Args holds decoded error arguments, accessible by position and, where the ABI names them, by
// name. A nil *Args means no argument list was resolved. Args is never modified after decoding.
type Args struct {
	values []any
	names  []string
}

func newArgs(inputs abi.Arguments, values []any) *Args {
	names := make([]string, len(values))
	for i := range values {
		if i < len(inputs) {
			names[i] = inputs[i].Name
		}
	}

	return &Args{values: values, names: names}
}

// NewArgs builds an argument list from parallel value and name slices. Names may be shorter than
// values, missing names are left empty. It is meant for custom handlers.
func NewArgs(values []any, names []string) *Args {
	a := &Args{
		values: slices.Clone(values),
		names:  make([]string, len(values)),
	}
	copy(a.names, names)

	return a
}

func emptyArgs() *Args {
	return &Args{values: []any{}, names: []string{}}
}

// Len returns the number of arguments. It is safe to call on a nil *Args.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}

	return len(a.values)
}

// At returns the argument at position i, or nil when i is out of range.
func (a *Args) At(i int) any {
	if a == nil || i < 0 || i >= len(a.values) {
		return nil
	}

	return a.values[i]
}

// Get returns the argument with the given ABI input name.
func (a *Args) Get(name string) (any, bool) {
	if a == nil || name == "" {
		return nil, false
	}

	for i, n := range a.names {
		if n == name {
			return a.values[i], true
		}
	}

	return nil, false
}

// Values returns a copy of the positional values.
func (a *Args) Values() []any {
	if a == nil {
		return nil
	}

	return slices.Clone(a.values)
}

// Names returns a copy of the input names. Unnamed inputs are empty strings.
func (a *Args) Names() []string {
	if a == nil {
		return nil
	}

	return slices.Clone(a.names)
}

// String renders the arguments as a comma separated list, prefixing named arguments.
func (a *Args) String() string {
	if a == nil {
		return ""
	}

	parts := make([]string, len(a.values))
	for i, v := range a.values {
		if a.names[i] != "" {
			parts[i] = a.names[i] + ": " + formatArg(v)
		} else {
			parts[i] = formatArg(v)
		}
	}

	return strings.Join(parts, ", ")
}

func formatArg(v any) string {
	switch t := v.(type) {
	case []byte:
		return hexutil.Encode(t)
	case string:
		return fmt.Sprintf("%q", t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
