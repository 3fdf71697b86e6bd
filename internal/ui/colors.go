package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytsync/internal/models"
)

var styles = NewPalette("#FF0033", "#04B575", "#FF5F5F", "#FFA500", "#626262")

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
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// outcomeStyle picks the color an outcome is rendered in on the result screen.
func (p *Palette) outcomeStyle(o models.Outcome) lipgloss.Style {
	switch o {
	case models.OutcomeAdded, models.OutcomeUpdated:
		return p.ok
	case models.OutcomeSkipped, models.OutcomeRetained:
		return p.warn
	default:
		return p.help
	}
}
