// Package logger wraps zap for the extension-host commands:
//   - a global sugared logger writing console lines to stderr, so stdout
//     stays free for machine-readable output such as extension ids,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag.
package logger
