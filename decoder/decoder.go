package decoder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/smartcontractkit/evm-revert-decoder/config"
	"github.com/smartcontractkit/evm-revert-decoder/pkg/logger"
)

const (
	defaultMaxUnwrapDepth = 4
	defaultRejectMarker   = "rejected transaction"
)

// Option configures a Decoder using the functional options pattern.
type Option func(*decoderConfig)

type decoderConfig struct {
	handlers  []Handler
	transport Transport
	lggr      logger.Logger
	markers   []string
	replay    bool
	maxDepth  int
	abiPaths  []string
}

func defaultDecoderConfig() *decoderConfig {
	return &decoderConfig{
		lggr:     logger.Nop(),
		markers:  []string{defaultRejectMarker},
		replay:   true,
		maxDepth: defaultMaxUnwrapDepth,
	}
}

// WithHandlers appends handlers to the chain. They are evaluated after the built-in handlers, in
// the given order, and only see payloads no built-in handler claimed.
//
// Example:
//
//	dec, _ := decoder.New(nil, decoder.WithHandlers(decoder.RevertMessageHandler()))
func WithHandlers(handlers ...Handler) Option {
	return func(cfg *decoderConfig) {
		for _, h := range handlers {
			if h != nil {
				cfg.handlers = append(cfg.handlers, h)
			}
		}
	}
}

// WithTransport sets the transport used to replay failed transactions whose receipt is carried by
// the raw error.
func WithTransport(transport Transport) Option {
	return func(cfg *decoderConfig) {
		cfg.transport = transport
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(lggr logger.Logger) Option {
	return func(cfg *decoderConfig) {
		if lggr != nil {
			cfg.lggr = lggr
		}
	}
}

// WithUserRejectMarkers replaces the message substrings that identify a wallet rejection.
func WithUserRejectMarkers(markers ...string) Option {
	return func(cfg *decoderConfig) {
		cfg.markers = slices.Clone(markers)
	}
}

// WithReplay enables or disables replaying failed transactions. Enabled by default.
func WithReplay(enabled bool) Option {
	return func(cfg *decoderConfig) {
		cfg.replay = enabled
	}
}

// WithMaxUnwrapDepth bounds how many nested reverts are decoded into DecodedError.Inner. Zero
// disables unwrapping.
func WithMaxUnwrapDepth(depth int) Option {
	return func(cfg *decoderConfig) {
		cfg.maxDepth = depth
	}
}

// WithConfig applies a decoder configuration obtained from config.Load or config.Default, where
// unset keys already hold their defaults. Errors found in c.ABIPaths are registered before the
// sources passed to New. A zero DecoderConfig is treated as unset and changes nothing.
func WithConfig(c config.DecoderConfig) Option {
	return func(cfg *decoderConfig) {
		if isZeroDecoderConfig(c) {
			return
		}
		if c.UserRejectMarkers != nil {
			cfg.markers = slices.Clone(c.UserRejectMarkers)
		}
		cfg.replay = c.ReplayFailedReceipts
		cfg.maxDepth = c.MaxUnwrapDepth
		cfg.abiPaths = slices.Clone(c.ABIPaths)
	}
}

func isZeroDecoderConfig(c config.DecoderConfig) bool {
	return c.UserRejectMarkers == nil && !c.ReplayFailedReceipts && c.MaxUnwrapDepth == 0 && len(c.ABIPaths) == 0
}

// Decoder turns raw contract call errors into DecodedError values. It is immutable once built and
// safe for concurrent use.
type Decoder struct {
	registry  *Registry
	handlers  []Handler
	extractor *extractor
	maxDepth  int
	lggr      logger.Logger
}

// New builds a Decoder resolving custom errors from sources. Sources registered later win on
// selector collisions.
func New(sources []ErrorSource, opts ...Option) (*Decoder, error) {
	cfg := defaultDecoderConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.maxDepth < 0 {
		return nil, fmt.Errorf("max unwrap depth must not be negative, got %d", cfg.maxDepth)
	}

	all := sources
	if len(cfg.abiPaths) > 0 {
		fromPaths, err := SourcesFromPaths(cfg.abiPaths...)
		if err != nil {
			return nil, fmt.Errorf("load ABI paths: %w", err)
		}
		all = append(fromPaths, sources...)
	}

	registry, err := NewRegistry(all...)
	if err != nil {
		return nil, fmt.Errorf("build error registry: %w", err)
	}

	lggr := cfg.lggr.Named("decoder")
	lggr.Debugw("Built error registry", "selectors", registry.Len(), "handlers", len(cfg.handlers))

	return &Decoder{
		registry: registry,
		handlers: append(builtinHandlers(cfg.markers), cfg.handlers...),
		extractor: &extractor{
			transport: cfg.transport,
			replay:    cfg.replay,
			lggr:      lggr,
		},
		maxDepth: cfg.maxDepth,
		lggr:     lggr,
	}, nil
}

// Registry returns the registry custom errors are resolved from.
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// Decode classifies raw and decodes its revert payload. It never fails: inputs that cannot be
// understood, transport failures and misbehaving handlers all yield a KindUnknown result.
func (d *Decoder) Decode(ctx context.Context, raw any) (res DecodedError) {
	defer func() {
		if r := recover(); r != nil {
			d.lggr.Errorw("Recovered from panic while decoding error", "panic", r)
			res = buildResult(DecodedError{Kind: KindUnknown, Reason: reasonUnexpected})
		}
	}()

	if !errorShaped(raw) {
		return buildResult(unexpectedInput(raw))
	}

	payload := d.extractor.extract(ctx, raw)
	res = d.classify(payload, raw, 0)

	d.lggr.Debugw("Decoded error", "kind", res.Kind, "name", res.Name, "hasData", res.HasData())

	return res
}

// classify runs payload through the handler chain. The first matching handler wins, a payload no
// handler claims is unknown.
func (d *Decoder) classify(payload string, raw any, depth int) DecodedError {
	hctx := HandlerContext{
		Registry: d.registry,
		RawError: raw,
		depth:    depth,
		classify: d.classify,
		maxDepth: d.maxDepth,
	}

	for _, h := range d.handlers {
		if res, ok := d.apply(h, payload, hctx); ok {
			return buildResult(res)
		}
	}

	return buildResult(unrecognised(payload, raw))
}

func (d *Decoder) apply(h Handler, payload string, hctx HandlerContext) (res DecodedError, matched bool) {
	defer func() {
		if r := recover(); r != nil {
			d.lggr.Errorw("Error handler panicked", "handler", fmt.Sprintf("%T", h), "panic", r)
			res, matched = DecodedError{Kind: KindUnknown, Reason: reasonUnrecognised, Data: payload}, true
		}
	}()

	if !h.Predicate(payload, hctx.RawError) {
		return DecodedError{}, false
	}

	return h.Handle(payload, hctx), true
}

func unrecognised(payload string, raw any) DecodedError {
	msg := messageOf(raw)
	if msg == "" && payload != "" {
		msg = reasonUnrecognised
	}

	return DecodedError{Kind: KindUnknown, Reason: msg, Data: payload}
}

func unexpectedInput(raw any) DecodedError {
	msg := messageOf(raw)
	if msg == "" {
		msg = reasonUnexpected
	}

	return DecodedError{Kind: KindUnknown, Reason: msg}
}

// IsKind reports whether err is, or wraps, a DecodedError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de DecodedError
	if errors.As(err, &de) {
		return de.Kind == kind
	}

	return false
}
