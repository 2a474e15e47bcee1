// Package kodi is the JSON-RPC client for Kodi media centers.
//
// This package provides:
//   - Client: one JSON-RPC 2.0 client per instance, over HTTP or WebSocket
//   - Remote: typed helpers for playback, volume, library and PVR calls
//   - Targets: the immutable registry of configured instances
//
// # Transports
//
// The HTTP transport posts every call to http://host:port/jsonrpc with
// optional basic auth and a pooled connection. The WebSocket transport keeps
// one connection to ws://host:port/jsonrpc, matches responses to calls by id
// and redials after a disconnect.
//
// # Errors
//
// Every failure is a *RemoteCallError. Use errors.Is with ErrTimeout,
// ErrUnreachable or ErrNotFound, or errors.As with *RPCError, to tell
// failures apart. Calls are never retried.
//
// # Usage
//
//	targets, err := kodi.FromConfig(cfg.Kodi, logger)
//	if err != nil {
//	    return err
//	}
//	defer targets.Close()
//
//	movie, err := targets.Default().FindMovie(ctx, "Inception")
//	if err == nil {
//	    err = targets.Default().OpenMovie(ctx, movie.MovieID)
//	}
package kodi
