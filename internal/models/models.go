package models

import (
	"fmt"

	"github.com/desertthunder/plcover/internal/shared"
)

// MaxSelection is the number of cells on the cover grid.
const MaxSelection = 4

// Album represents an album from the music provider.
type Album struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	ImageURL string `json:"image_url"`
}

// Playlist represents a user playlist.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	ImageURL   string `json:"image_url"`
}

// Selection is an ordered list of at most [MaxSelection] albums with unique IDs.
type Selection []Album

// Validate checks the length and uniqueness invariants.
func (s Selection) Validate() error {
	if len(s) > MaxSelection {
		return fmt.Errorf("%w: %d albums", shared.ErrSelectionFull, len(s))
	}

	seen := make(map[string]bool, len(s))
	for _, a := range s {
		if a.ID == "" {
			return fmt.Errorf("%w: album without id", shared.ErrInvalidInput)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateAlbum, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// At returns the album at grid position i and whether the slot is filled.
func (s Selection) At(i int) (Album, bool) {
	if i < 0 || i >= len(s) {
		return Album{}, false
	}
	return s[i], true
}

// Contains reports whether an album with id is selected.
func (s Selection) Contains(id string) bool {
	return s.IndexOf(id) >= 0
}

// IndexOf returns the grid position of id or -1.
func (s Selection) IndexOf(id string) int {
	for i, a := range s {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Add appends album. Full selections and duplicates are rejected.
func (s Selection) Add(album Album) (Selection, error) {
	if len(s) >= MaxSelection {
		return s, shared.ErrSelectionFull
	}
	if s.Contains(album.ID) {
		return s, fmt.Errorf("%w: %s", shared.ErrDuplicateAlbum, album.ID)
	}

	next := append(s.Clone(), album)
	return next, next.Validate()
}

// Remove drops the album with id, keeping the order of the rest.
func (s Selection) Remove(id string) (Selection, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
	}

	next := make(Selection, 0, len(s)-1)
	next = append(next, s[:idx]...)
	return append(next, s[idx+1:]...), nil
}

// Move relocates the album at from to position to, shifting the albums in between.
func (s Selection) Move(from, to int) (Selection, error) {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) {
		return s, fmt.Errorf("%w: move %d -> %d in selection of %d", shared.ErrInvalidArgument, from, to, len(s))
	}

	next := s.Clone()
	album := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append(Selection{album}, next[to:]...)...)
	return next, nil
}

// Clone returns a copy that shares no backing array with s.
func (s Selection) Clone() Selection {
	if s == nil {
		return Selection{}
	}
	out := make(Selection, len(s))
	copy(out, s)
	return out
}
