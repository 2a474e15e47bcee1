// Package api implements the HTTP listener of the bridge.
//
// This package provides:
//   - Validator: shared-token authentication and Kodi target selection
//   - Dispatcher: parameter extraction and action invocation
//   - One GET route per action plus POST /kodi for structured intents
//   - Middleware stack (request ID, logging, recovery, rate limit, body limit)
//   - TLS support for deployments exposed beyond the LAN
//
// # Request pipeline
//
// Every control route runs the same two steps inside its handler:
//
//	rc, err := validator.Validate(r)   // 403 malformed, 401 unauthenticated
//	dispatcher.Dispatch(w, r, rc, a)  // 400 params, 502/504 remote failure
//
// Dispatch is never reached when validation fails.
//
// # Detached actions
//
// /shutdown answers 200 as soon as validation passes. The remote call runs
// afterwards and its outcome is only logged and recorded, so a caller
// cannot tell whether the host actually shut down.
//
// GET / (landing page) and GET /health need no token.
package api
