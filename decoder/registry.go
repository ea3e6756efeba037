package decoder

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnsupportedArtifact is returned when an artifact file holds neither an ABI array nor an
// object with an "abi" key.
var ErrUnsupportedArtifact = errors.New("unsupported ABI artifact")

// Selector is the first 4 bytes of the keccak256 hash of a canonical error signature.
type Selector [4]byte

// SelectorFromSignature computes the selector of a canonical signature such as "Error(string)".
func SelectorFromSignature(sig string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(sig))[:4])

	return s
}

// String returns the 0x prefixed lowercase hex form of the selector.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// ErrorSignature describes a custom error that can be decoded.
type ErrorSignature struct {
	Selector Selector
	Name     string
	Inputs   abi.Arguments
	// Source labels where the signature was registered from, e.g. a type and version or a file.
	Source string

	sig string
}

// Signature returns the canonical signature text, e.g. "Unauthorized(address,uint256)".
func (s ErrorSignature) Signature() string {
	if s.sig != "" {
		return s.sig
	}

	types := make([]string, len(s.Inputs))
	for i, in := range s.Inputs {
		types[i] = in.Type.String()
	}

	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(types, ","))
}

func signatureFromABIError(e abi.Error, source string) ErrorSignature {
	var sel Selector
	copy(sel[:], e.ID[:4]) // selector is first 4 bytes of the keccak(sig)

	return ErrorSignature{
		Selector: sel,
		Name:     e.Name,
		Inputs:   e.Inputs,
		Source:   source,
		sig:      e.Sig,
	}
}

// ErrorSource supplies custom error signatures to a Registry. Every kind of source is normalized
// into ErrorSignature values when the registry is built.
type ErrorSource interface {
	errorSignatures() ([]ErrorSignature, error)
}

type sourceFunc func() ([]ErrorSignature, error)

func (f sourceFunc) errorSignatures() ([]ErrorSignature, error) { return f() }

// FromJSON is a source of the error fragments in a JSON ABI. Fragments of any other type are
// ignored.
func FromJSON(abiJSON string) ErrorSource {
	return sourceFunc(func() ([]ErrorSignature, error) {
		return parseABIJSON(abiJSON, "")
	})
}

// FromABI is a source of the errors of a parsed ABI.
func FromABI(parsed abi.ABI) ErrorSource {
	return sourceFunc(func() ([]ErrorSignature, error) {
		return sortedErrors(parsed, ""), nil
	})
}

// FromErrors is a source of individual ABI errors, registered in the given order.
func FromErrors(errs ...abi.Error) ErrorSource {
	return sourceFunc(func() ([]ErrorSignature, error) {
		sigs := make([]ErrorSignature, 0, len(errs))
		for _, e := range errs {
			sigs = append(sigs, signatureFromABIError(e, ""))
		}

		return sigs, nil
	})
}

// ABIRegistry provides ABIs keyed by a label such as "Router 1.2.0".
type ABIRegistry interface {
	GetAllABIs() map[string]string
}

// FromABIRegistry is a source of every error in every ABI of the registry. ABIs are registered in
// lexical order of their labels so that collisions resolve deterministically.
func FromABIRegistry(registry ABIRegistry) ErrorSource {
	return sourceFunc(func() ([]ErrorSignature, error) {
		if registry == nil {
			return nil, nil
		}

		all := registry.GetAllABIs()

		var sigs []ErrorSignature
		for _, label := range slices.Sorted(maps.Keys(all)) {
			parsed, err := parseABIJSON(all[label], label)
			if err != nil {
				return nil, err
			}
			sigs = append(sigs, parsed...)
		}

		return sigs, nil
	})
}

// FromArtifactFile is a source of the errors in a JSON file holding either a bare ABI array or a
// compiler artifact (Hardhat, Foundry) with an "abi" key.
func FromArtifactFile(path string) ErrorSource {
	return sourceFunc(func() ([]ErrorSignature, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read artifact %s: %w", path, err)
		}

		abiJSON, err := abiFromArtifact(b)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", path, err)
		}

		return parseABIJSON(string(abiJSON), filepath.Base(path))
	})
}

// SourcesFromPaths returns one artifact source per JSON file found at paths. Directories are
// walked recursively, files are returned in lexical order.
func SourcesFromPaths(paths ...string) ([]ErrorSource, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat ABI path %s: %w", p, err)
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk ABI path %s: %w", p, err)
		}
	}

	slices.Sort(files)

	sources := make([]ErrorSource, len(files))
	for i, f := range files {
		sources[i] = FromArtifactFile(f)
	}

	return sources, nil
}

func abiFromArtifact(b []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(b))
	switch {
	case strings.HasPrefix(trimmed, "["):
		return json.RawMessage(trimmed), nil
	case strings.HasPrefix(trimmed, "{"):
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(b, &artifact); err != nil {
			return nil, fmt.Errorf("unmarshal artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return nil, fmt.Errorf("%w: missing abi key", ErrUnsupportedArtifact)
		}

		return artifact.ABI, nil
	default:
		return nil, ErrUnsupportedArtifact
	}
}

func parseABIJSON(abiJSON, source string) ([]ErrorSignature, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		if source != "" {
			return nil, fmt.Errorf("parse ABI for %s: %w", source, err)
		}

		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	return sortedErrors(parsed, source), nil
}

// sortedErrors returns the errors of an ABI ordered by name, abi.ABI keeps them in a map.
func sortedErrors(parsed abi.ABI, source string) []ErrorSignature {
	sigs := make([]ErrorSignature, 0, len(parsed.Errors))
	for _, name := range slices.Sorted(maps.Keys(parsed.Errors)) {
		sigs = append(sigs, signatureFromABIError(parsed.Errors[name], source))
	}

	return sigs
}

// Registry indexes custom error signatures by selector. It is read-only once built and safe for
// concurrent use.
type Registry struct {
	bySelector map[Selector]ErrorSignature
}

// NewRegistry merges the signatures of every source. When two signatures share a selector, the
// one registered last wins. No sources yields an empty, usable registry.
func NewRegistry(sources ...ErrorSource) (*Registry, error) {
	r := &Registry{bySelector: make(map[Selector]ErrorSignature)}

	for i, src := range sources {
		if src == nil {
			continue
		}

		sigs, err := src.errorSignatures()
		if err != nil {
			return nil, fmt.Errorf("error source %d: %w", i, err)
		}

		for _, sig := range sigs {
			r.bySelector[sig.Selector] = sig
		}
	}

	return r, nil
}

// Lookup returns the signature registered for sel.
func (r *Registry) Lookup(sel Selector) (ErrorSignature, bool) {
	if r == nil {
		return ErrorSignature{}, false
	}

	sig, ok := r.bySelector[sel]

	return sig, ok
}

// Len returns the number of registered selectors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.bySelector)
}

// Selectors returns every registered selector in ascending byte order.
func (r *Registry) Selectors() []Selector {
	if r == nil {
		return nil
	}

	sels := slices.Collect(maps.Keys(r.bySelector))
	slices.SortFunc(sels, func(a, b Selector) int {
		return strings.Compare(string(a[:]), string(b[:]))
	})

	return sels
}
