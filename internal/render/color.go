package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var ErrInvalidColor = errors.New("invalid color")

// ColorError describes why a color string was rejected.
type ColorError struct {
	Input  string
	Reason string
}

func (e *ColorError) Error() string {
	return fmt.Sprintf("invalid color %q: %s", e.Input, e.Reason)
}

func (e *ColorError) Unwrap() error { return ErrInvalidColor }

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) RGBA() color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff} }

func (c RGB) String() string { return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B) }

// ParseColor accepts "rgb(r,g,b[,...])", "#rgb", "rgb", "#rrggbb" and "rrggbb".
// Components after the third in the rgb() form are ignored.
func ParseColor(s string) (RGB, error) {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "rgb(") && strings.HasSuffix(trimmed, ")") {
		parts := strings.Split(trimmed[len("rgb("):len(trimmed)-1], ",")
		if len(parts) < 3 {
			return RGB{}, &ColorError{Input: s, Reason: fmt.Sprintf("rgb() needs at least 3 components, got %d", len(parts))}
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			p := strings.TrimSpace(parts[i])
			v, err := strconv.ParseUint(p, 10, 8)
			if err != nil {
				return RGB{}, &ColorError{Input: s, Reason: fmt.Sprintf("component %d %q is not 0..255", i, p)}
			}
			ch[i] = uint8(v)
		}
		return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
	}

	hex := strings.TrimPrefix(trimmed, "#")
	switch len(hex) {
	case 3:
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(strings.Repeat(hex[i:i+1], 2), 16, 8)
			if err != nil {
				return RGB{}, &ColorError{Input: s, Reason: fmt.Sprintf("bad hex digit %q", hex[i:i+1])}
			}
			ch[i] = uint8(v)
		}
		return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
	case 6:
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			pair := hex[i*2 : i*2+2]
			v, err := strconv.ParseUint(pair, 16, 8)
			if err != nil {
				return RGB{}, &ColorError{Input: s, Reason: fmt.Sprintf("bad hex pair %q", pair)}
			}
			ch[i] = uint8(v)
		}
		return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
	default:
		return RGB{}, &ColorError{Input: s, Reason: fmt.Sprintf("hex color must have 3 or 6 digits, got length %d", len(hex))}
	}
}

// ParsePalette parses an identifier to color text table. The first bad entry fails the whole table.
func ParsePalette(table map[string]string) (map[string]RGB, error) {
	out := make(map[string]RGB, len(table))
	for id, text := range table {
		c, err := ParseColor(text)
		if err != nil {
			return nil, fmt.Errorf("palette %s: %w", id, err)
		}
		out[id] = c
	}
	return out, nil
}
