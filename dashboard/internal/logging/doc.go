// Package logging builds the process logger.
//
// Call sites use log/slog; records are encoded by zap (JSON in production,
// console for local runs). main installs the result with slog.SetDefault.
package logging
