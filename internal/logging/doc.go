// Package logging provides centralized zerolog-based structured logging for
// the orchestration core.
//
// The package implements a single global logger using zerolog, giving every
// package zero-allocation structured logging: JSON output in production,
// console output in development, and context-aware correlation IDs so a
// deployment's logs can be traced across the lifecycle, publish, and
// activator code paths without threading a logger through every call.
//
// # Quick Start
//
//	import "github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("service", name).Msg("service installed")
//	logging.Error().Err(err).Msg("phase failed")
//
//	logger := logging.Ctx(ctx)
//	logger.Info().Str("deployment_id", id).Msg("deployment activated")
//
// # Configuration
//
// Config fields passed to Init (the package reads no environment
// variables):
//
//	Level   - trace, debug, info, warn, error, fatal, panic, disabled (default: info)
//	Format  - json, console (default: json)
//	Caller  - true, false (default: false)
//
// # Structured logging
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // correct
//	logging.Info().Str("key", "value")                 // wrong: not emitted
//
// # Component loggers
//
//	lifecycleLogger := logging.With().Str("component", "lifecycle").Logger()
//	lifecycleLogger.Info().Msg("starting")
//
// # slog adapter
//
// NewSlogLogger returns an slog.Logger backed by the global zerolog logger,
// used to satisfy libraries that require slog (the suture supervisor tree's
// sutureslog event hook).
package logging
