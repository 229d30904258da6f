// Package session owns the user's Spotify session.
//
// A [TokenStore] persists the session and the pending login request in a [repositories.KV].
// A [Manager] drives the authorization code + PKCE login, and [Call] runs authenticated
// operations with at most one refresh-and-retry per call.
//
// Session lifecycle:
//
//	Unauthenticated -> (BeginLogin) PendingAuth -> (CompleteLogin) Active
//	Active -> (refresh) Active
//	Active -> (refresh failure | EndSession) Unauthenticated
//
// Nothing outside this package reads or writes the persisted keys.
package session
