// Package log is Eventa's small logging layer on top of the standard library
// logger.
//
//   - Named loggers per component via ForService(name); every line carries a
//     "[name>]" marker after the level.
//   - Infof, Warnf, Errorf and Debugf helpers.
//   - Debug output enabled globally (SetGlobalDebug) or per component
//     (EnableDebugFor / DisableDebugFor), or both at once from configuration
//     with Configure.
//   - A single output writer (SetOutput) shared by every logger, existing
//     ones included.
//
// Usage
//
//	l := log.ForService("websearch")
//	l.Infof("query %q returned %d items", q, n)
//	l.Debugf("raw body: %s", body) // printed only when debug is on for "websearch"
//
// The package name collides with the standard library on purpose; alias one
// of them when both are needed.
//
// Everything exported is safe for concurrent use.
package log
