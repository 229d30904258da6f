// Package models defines the domain entities shared by the gateway, the compositor, and the CLI.
//
//   - [Album] : an album with the cover image URL used for composition
//   - [Playlist] : a user playlist that can receive an uploaded cover
//   - [Selection] : the ordered 0-4 albums placed on the cover grid
//
// [Selection] index is grid position (row-major). Consumers treat a Selection as read-only input;
// mutation goes through its methods, each of which returns a new Selection.
package models
