// Package meract is a small HTTP framework: a router with named routes,
// groups and middleware, and a raw TCP server that parses one request per
// connection and writes one response.
//
// # Quick Start
//
//	server, err := meract.NewServer("0.0.0.0", 8000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	router := meract.NewRouter(meract.WithServer(server))
//	router.GET("/", func(req *meract.Request, _ meract.Params) (*meract.Response, error) {
//		return meract.String(200, "hello"), nil
//	})
//	router.GET("/users/{id}", showUser).Name("profile")
//
//	if err := meract.RunSocket(router); err != nil {
//		log.Fatal(err)
//	}
//
// # Routing
//
// Patterns are matched against the whole path. A {name} placeholder matches
// one non-empty segment and is passed to the handler in Params. Routes are
// tried in registration order; registering the same method and pattern
// again replaces the handler in place.
//
// Groups prefix patterns and route names and stack middleware:
//
//	router.GroupNamed("/admin", "admin.", func(r *meract.Router) {
//		r.GET("/dashboard", dashboard).Name("dashboard") // "admin.dashboard"
//	}, authMiddleware)
//
//	url, err := router.URL("profile", map[string]string{"id": "42"}) // "/users/42"
//
// # Dispatch
//
// An unmatched request falls through to the static resolver, then the
// not-found handler, then a plain "Not Found" 404. A handler returning
// (nil, nil) is answered with 404; a handler error goes to the error
// handler.
//
// # Pull mode
//
// The same router runs under other servers: [Router.HandleRequest] for
// one-off dispatch, [Router.ServeHTTP] for net/http (see [RunHTTP]) and
// [Router.FastHTTPHandler] for fasthttp (see [RunFastHTTP]).
package meract
