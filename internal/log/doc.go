// Package log provides logging for pastetrace on top of the standard slog
// package, with automatic masking of credential-shaped values.
//
// The scanner's whole job is finding leaked login material, which makes its
// logs a second leak vector if handled carelessly. RedactHandler masks
// sensitive attribute values (passwords, tokens, user:password pairs,
// authorization headers) before any record reaches the underlying handler,
// even in verbose mode.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("result recorded",
//	    "url", result.Location,
//	    "password", "hunter2", // masked in output
//	)
package log
