// Package pkg provides shared utilities for the usbmidi device function.
//
// This package contains common functionality used by the descriptor
// composer, the lifecycle adapter, the data path and the tooling:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for configuration and controller failures
//   - The [Status] code surface handed back to vendor controller stacks
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(pkg.ParseLevel("debug"))
//	pkg.LogInfo(pkg.ComponentLifecycle, "host connected", "ports", 4)
//
// # Errors
//
// Errors are defined as sentinel values and wrapped with context:
//
//	if errors.Is(err, pkg.ErrEndpointOpen) {
//	    // Controller refused the endpoint; retry policy is the caller's
//	}
package pkg
