// Package internal holds the router, the socket server and the request and
// response values behind the meract package.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/meract" instead, which re-exports the public API.
//
// # Core Types
//
//   - Request: parsed from raw socket text (ParseRequest) or from an ambient
//     server (FromHTTP, FromFastHTTP)
//   - Response: status, ordered headers, cookies and body; serialized with CRLF
//   - Server: single-goroutine accept loop, one bounded read per connection
//   - Router: method registry, groups, named routes, static and not-found fallbacks
//   - Middleware: Handle(req, next, params), composed with the first registered
//     middleware outermost
//
// # Dispatch
//
// Push mode (Router.StartHandling) and pull mode (Router.HandleRequest, and
// the ServeHTTP / FastHTTPHandler adapters built on it) share one resolve
// function: first matching route in registration order, then the static
// resolver, then the not-found handler, then a plain 404.
package internal
