package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"screepsres/internal/aggregate"
	"screepsres/internal/catalog"
)

var ErrRender = errors.New("render failed")

type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %s: %v", e.Path, e.Err) }
func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// Layout constants, in pixels.
const (
	DefaultGap = 100

	marginLeft   = 30
	headerX      = 10
	firstHeaderY = 15
	headerToRow  = 15
	rowStep      = 30
	sectionGap   = 35
	lineHeight   = 14
	bottomMargin = 40
	footerWidth  = 150
	fontSize     = 14
)

const timestampLayout = "2006/01/02 15:04:05"

type section struct {
	title    string
	category catalog.Category
}

// Sections are drawn top to bottom in this order; a category with several tiers stacks them.
var sections = []section{
	{title: "baseRes", category: catalog.CategoryBase},
	{title: "barsRes", category: catalog.CategoryBar},
	{title: "powerRes", category: catalog.CategoryPower},
	{title: "goods", category: catalog.CategoryCompound},
	{title: "labRes", category: catalog.CategoryLabBase},
}

// Options configures a Renderer. DefaultOptions fills in the stock look.
type Options struct {
	DataDir     string
	Gap         int
	Background  string
	HeaderColor string
	FooterColor string
	// Palette maps resource identifiers to color text. Nil means catalog.Palette().
	Palette map[string]string
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions is a dark background with white headers and a grey footer.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:     dataDir,
		Gap:         DefaultGap,
		Background:  "#2b2b2b",
		HeaderColor: "#ffffff",
		FooterColor: "#888",
	}
}

// Renderer draws report images into its data dir. Colors and font are parsed once.
type Renderer struct {
	dataDir  string
	gap      int
	bg       RGB
	header   RGB
	footer   RGB
	colors   map[string]RGB
	fallback RGB
	font     *opentype.Font
	now      func() time.Time
}

// NewRenderer validates every configured color, including the resource palette.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("empty data dir")
	}
	if opts.Gap <= 0 {
		opts.Gap = DefaultGap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Renderer{dataDir: opts.DataDir, gap: opts.Gap, now: opts.Now}
	for _, c := range []struct {
		name string
		in   string
		out  *RGB
	}{
		{"background", opts.Background, &r.bg},
		{"header color", opts.HeaderColor, &r.header},
		{"footer color", opts.FooterColor, &r.footer},
		{"fallback color", catalog.FallbackColor, &r.fallback},
	} {
		v, err := ParseColor(c.in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.out = v
	}
	table := opts.Palette
	if table == nil {
		table = catalog.Palette()
	}
	colors, err := ParsePalette(table)
	if err != nil {
		return nil, err
	}
	r.colors = colors
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	r.font = f
	return r, nil
}

// Path is where the image for (username, shardFilter) is written. The filter is embedded as given.
func (r *Renderer) Path(username, shardFilter string) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("%s_%s.png", username, shardFilter))
}

// Size returns the canvas dimensions.
func (r *Renderer) Size() (int, int) {
	y := firstHeaderY
	for _, s := range sections {
		y += headerToRow + rowStep*(len(catalog.GroupsOf(s.category))-1)
		y += sectionGap
	}
	lastRow := y - sectionGap
	return catalog.Widest()*r.gap + marginLeft, lastRow + bottomMargin
}

type Label struct {
	Text  string
	X, Y  int // top-left of the text
	Color RGB
}

// Layout places every label for the grand totals. Catalog entries without a quantity show 0.
func (r *Renderer) Layout(grand aggregate.Totals, username, shardFilter string, at time.Time) []Label {
	var out []Label
	y := firstHeaderY
	for _, s := range sections {
		out = append(out, Label{Text: s.title, X: headerX, Y: y, Color: r.header})
		rowY := y + headerToRow
		for tier, g := range catalog.GroupsOf(s.category) {
			if tier > 0 {
				rowY += rowStep
			}
			for i, id := range g.Resources {
				c := r.color(id)
				x := marginLeft + r.gap*i
				out = append(out,
					Label{Text: id, X: x, Y: rowY, Color: c},
					Label{Text: FormatNumber(grand.Get(id)), X: x, Y: rowY + lineHeight, Color: c},
				)
			}
		}
		y = rowY + sectionGap
	}

	w, h := r.Size()
	scope := shardFilter
	if shardFilter == aggregate.AllShards {
		scope = "all shard"
	}
	out = append(out,
		Label{Text: at.Local().Format(timestampLayout), X: w - footerWidth, Y: h - 140, Color: r.footer},
		Label{Text: username + " " + scope, X: w - footerWidth, Y: h - 120, Color: r.footer},
	)
	return out
}

// Draw paints the report onto a new canvas.
func (r *Renderer) Draw(grand aggregate.Totals, username, shardFilter string, at time.Time) (*image.RGBA, error) {
	w, h := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.bg.RGBA()), image.Point{}, draw.Src)

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	defer face.Close()
	ascent := face.Metrics().Ascent.Ceil()

	d := &font.Drawer{Dst: img, Face: face}
	for _, l := range r.Layout(grand, username, shardFilter, at) {
		d.Src = image.NewUniform(l.Color.RGBA())
		d.Dot = fixed.P(l.X, l.Y+ascent)
		d.DrawString(l.Text)
	}
	return img, nil
}

// Render collapses totals across shards, draws them and writes the PNG, replacing any
// previous image for the same arguments.
func (r *Renderer) Render(totals aggregate.ShardTotals, username, shardFilter string) (string, error) {
	path := r.Path(username, shardFilter)
	img, err := r.Draw(aggregate.Merge(totals), username, shardFilter, r.now())
	if err != nil {
		return "", &RenderError{Path: path, Err: err}
	}
	if err := writePNG(path, img); err != nil {
		return "", &RenderError{Path: path, Err: err}
	}
	return path, nil
}

// writePNG encodes into a temp file next to path and renames it over path.
func writePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".render-*.png")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("png encode: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (r *Renderer) color(id string) RGB {
	if c, ok := r.colors[id]; ok {
		return c
	}
	return r.fallback
}
