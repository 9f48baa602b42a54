package graphic

import "github.com/nsf/termbox-go"

// Styles holds the colors a display draws with.
type Styles struct {
	Foreground termbox.Attribute
	Background termbox.Attribute
	Center     termbox.Attribute
}

// DefaultStyles returns the default colors.
func DefaultStyles() Styles {
	return Styles{
		Foreground: termbox.ColorDefault,
		Background: termbox.ColorDefault,
		Center:     termbox.ColorMagenta,
	}
}

// AsUInt16s returns the foreground, background and center attributes.
func (s Styles) AsUInt16s() (uint16, uint16, uint16) {
	return uint16(s.Foreground), uint16(s.Background), uint16(s.Center)
}

// StylesFromUInt16 builds styles from raw attributes.
func StylesFromUInt16(fg, bg, center uint16) Styles {
	return Styles{
		Foreground: termbox.Attribute(fg),
		Background: termbox.Attribute(bg),
		Center:     termbox.Attribute(center),
	}
}
