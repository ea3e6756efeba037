// Package decoder classifies and decodes failures returned by EVM smart-contract calls.
//
// A [Decoder] turns an opaque error raised by an RPC client into a [DecodedError] describing why
// the call failed. Decoding happens in three steps:
//
//   - the revert payload is extracted from the error, or from the replay of the failed
//     transaction when the error carries its receipt and a [Transport] is available;
//   - an ordered chain of [Handler] values classifies the payload, the first matching handler wins;
//   - the handler result is normalized into an immutable [DecodedError].
//
// Custom errors are resolved against a [Registry] built from the ABIs supplied to [New]:
//
//	dec, err := decoder.New([]decoder.ErrorSource{decoder.FromJSON(vaultABI)},
//		decoder.WithTransport(ethClient),
//	)
//	if err != nil {
//		return err
//	}
//
//	_, err = vault.Withdraw(opts, amount)
//	if err != nil {
//		decoded := dec.Decode(ctx, err)
//		lggr.Errorw("withdraw failed", "kind", decoded.Kind, "reason", decoded.Reason)
//	}
//
// Settings can come from a config file or the environment, see package config:
//
//	cfg, err := config.Load("revert-decoder.yml")
//	if err != nil {
//		return err
//	}
//	lggr, err := logger.NewWithLevel(cfg.Log.Level)
//	if err != nil {
//		return err
//	}
//	client, err := transport.Dial(ctx, cfg.Transport, lggr)
//	if err != nil {
//		return err
//	}
//	dec, err := decoder.New(nil,
//		decoder.WithConfig(cfg.Decoder),
//		decoder.WithTransport(client),
//		decoder.WithLogger(lggr),
//	)
//
// Decode never fails: every input resolves to exactly one [ErrorKind].
package decoder
