// Package server provides the loopback HTTP receiver for the OAuth redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs outermost.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns ("GET /callback"), so a
// stray request such as a favicon fetch or a POST never reaches the one-shot callback handler.
//
// # Callback Handler
//
// [CallbackHandler] captures the code and state the provider appends to the redirect URI and sends them
// through a channel. It does not validate state or exchange the code: the session manager compares the
// state against the persisted pending login and performs the exchange.
//
// It only processes one callback; later requests are rejected.
//
// # Receiver
//
// [Receiver] binds the redirect URI's host and port, serves the callback path, and shuts down after
// the first callback or when the caller's context ends.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
