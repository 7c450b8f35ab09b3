// Package logger provides the structured logging interface used across the
// news pipeline.
//
// It wraps zerolog. Output goes to stderr as colored console lines when
// stderr is a terminal and as JSON otherwise (or when logging.json is set),
// and is mirrored to logging.file when configured.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.ForComponent("discovery")
//	log.WithField("category", "national").Info("Walking listing")
//
// Tests inject NewTestLogger or NewNopLogger instead of the global logger.
package logger
