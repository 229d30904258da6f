package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/plcover/internal/cover"
	"github.com/desertthunder/plcover/internal/models"
)

// Styles is the default palette.
var Styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render("✓ " + s) }
func (p *Palette) Err(s string) string   { return p.err.Render("✗ " + s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

const cellWidth = 28

// SelectionGrid renders sel as a 2x2 grid of bordered cells, row-major.
func SelectionGrid(sel models.Selection) string {
	cells := make([]string, models.MaxSelection)
	for i := range cells {
		cells[i] = gridCell(sel, i)
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, cells[0], cells[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cells[2], cells[3])
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func gridCell(sel models.Selection, i int) string {
	style := lipgloss.NewStyle().
		Width(cellWidth).
		Height(3).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262"))

	album, ok := sel.At(i)
	if !ok {
		return style.
			Background(lipgloss.Color(cover.Palette[i])).
			Foreground(lipgloss.Color("#ADB5BD")).
			Render(fmt.Sprintf("%d · empty", i+1))
	}

	lines := []string{
		fmt.Sprintf("%d · %s", i+1, truncate(album.Name, cellWidth-6)),
		truncate(album.Artist, cellWidth-2),
		Styles.Help(truncate(album.ID, cellWidth-2)),
	}
	return style.Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
