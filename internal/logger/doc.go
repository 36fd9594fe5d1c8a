// Package logger provides structured JSON logging for actionfeed.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// one JSON object per line through zap. Every entry carries a UTC timestamp, the
// level, the message and any structured fields passed by the caller. The
// package-level functions write through a default logger that the CLI replaces
// at startup according to the --verbose flag.
//
// Example usage:
//
//	logger.Info("Scrape finished", logger.Fields{
//	    "source":  "risestronger",
//	    "records": 42,
//	})
//
//	logger.Error("Snapshot save failed", logger.Fields{
//	    "path": path,
//	}, err)
package logger
