// package formatter renders album listings as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
)

// Format names an export format.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// ParseFormat accepts text, csv, markdown, and md, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// AlbumsToCSV converts albums to CSV with columns: Position, ID, Name, Artist, ImageURL
func AlbumsToCSV(albums []models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Name", "Artist", "ImageURL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, album := range albums {
		record := []string{fmt.Sprint(i + 1), album.ID, album.Name, album.Artist, album.ImageURL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// AlbumsToMarkdown renders albums as a titled Markdown list, with an optional cover image.
func AlbumsToMarkdown(title string, albums []models.Album, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Albums**: %d\n\n", len(albums))
	for i, album := range albums {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, album.Artist, album.Name)
		if album.ImageURL != "" {
			fmt.Fprintf(&buf, " ([art](%s))", album.ImageURL)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// AlbumsToText renders albums as plain numbered lines.
func AlbumsToText(title string, albums []models.Album) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Albums: %d\n\n", len(albums))
	for i, album := range albums {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, album.Artist, album.Name)
	}
	return buf.Bytes(), nil
}

// Render dispatches to the exporter for format. imageFilename is only used by Markdown.
func Render(format Format, title string, albums []models.Album, imageFilename string) ([]byte, error) {
	switch format {
	case CSV:
		return AlbumsToCSV(albums)
	case Markdown:
		return AlbumsToMarkdown(title, albums, imageFilename)
	case Text:
		return AlbumsToText(title, albums)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes albums in format to path.
func WriteExport(path string, format Format, title string, albums []models.Album, imageFilename string) error {
	data, err := Render(format, title, albums, imageFilename)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
