// Package server provides HTTP routing infrastructure and the embedded mock studio backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Mock Studio Backend
//
// [Backend] is a scripted stand-in for the studio backend, exposing the full
// operation surface (submit endpoints, per-job status, the shared progress
// slot, feature readiness, artifacts, training control). State advances one
// step per poll so tests can drive job lifecycles deterministically.
//
// The same Backend doubles as an in-process [transport.Bridge]: its Call
// method dispatches named operations to the same state machine the HTTP
// handlers use, so both transports can be exercised against identical
// semantics. `chorus mockd` serves it over HTTP for development.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
