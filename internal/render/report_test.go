package render

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"screepsres/internal/aggregate"
)

var fixedNow = time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local)

func newTestRenderer(t *testing.T, dir string) *Renderer {
	t.Helper()
	opts := DefaultOptions(dir)
	opts.Now = func() time.Time { return fixedNow }
	r, err := NewRenderer(opts)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func findLabel(labels []Label, text string) (Label, bool) {
	for _, l := range labels {
		if l.Text == text {
			return l, true
		}
	}
	return Label{}, false
}

func TestRenderer_Size(t *testing.T) {
	r := newTestRenderer(t, t.TempDir())
	w, h := r.Size()
	if w != 930 || h != 540 {
		t.Fatalf("size = %dx%d want 930x540", w, h)
	}
}

func TestRenderer_LayoutPositions(t *testing.T) {
	r := newTestRenderer(t, t.TempDir())
	labels := r.Layout(aggregate.Totals{"energy": 150, "U": 10, "XGHO2": 1234567}, "alice", aggregate.AllShards, fixedNow)

	headers := map[string]int{"baseRes": 15, "barsRes": 65, "powerRes": 115, "goods": 165, "labRes": 335}
	for title, y := range headers {
		l, ok := findLabel(labels, title)
		if !ok || l.X != 10 || l.Y != y {
			t.Fatalf("header %s = %+v ok=%v, want y=%d", title, l, ok, y)
		}
	}

	cases := []struct {
		text string
		x, y int
	}{
		{"energy", 30, 30},
		{"ghodium_melt", 830, 80},
		{"ops", 130, 130},
		{"composite", 30, 180},
		{"organism", 630, 300},
		{"OH", 30, 350},
		{"XGHO2", 530, 500},
		{"1,234,567", 530, 514},
	}
	for _, c := range cases {
		l, ok := findLabel(labels, c.text)
		if !ok || l.X != c.x || l.Y != c.y {
			t.Fatalf("label %s = %+v ok=%v, want (%d,%d)", c.text, l, ok, c.x, c.y)
		}
	}

	energy, _ := findLabel(labels, "energy")
	if energy.Color != (RGB{R: 255, G: 242, B: 0}) {
		t.Fatalf("energy color = %v", energy.Color)
	}
	qty, ok := findLabel(labels, "150")
	if !ok || qty.X != 30 || qty.Y != 44 || qty.Color != energy.Color {
		t.Fatalf("energy quantity label = %+v ok=%v", qty, ok)
	}

	ts, ok := findLabel(labels, "2024/03/05 07:08:09")
	if !ok || ts.X != 780 || ts.Y != 400 {
		t.Fatalf("timestamp label = %+v ok=%v", ts, ok)
	}
	who, ok := findLabel(labels, "alice all shard")
	if !ok || who.X != 780 || who.Y != 420 {
		t.Fatalf("scope label = %+v ok=%v", who, ok)
	}
}

func TestRenderer_LayoutZeroFillAndSingleShardScope(t *testing.T) {
	r := newTestRenderer(t, t.TempDir())
	labels := r.Layout(aggregate.Totals{}, "bob", "shard3", fixedNow)
	zeros := 0
	for _, l := range labels {
		if l.Text == "0" {
			zeros++
		}
	}
	// Every catalog cell shows a quantity, G twice.
	if zeros != 90 {
		t.Fatalf("zero cells = %d want 90", zeros)
	}
	if _, ok := findLabel(labels, "bob shard3"); !ok {
		t.Fatalf("missing single shard scope label")
	}
}

func TestRenderer_RenderWritesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	r := newTestRenderer(t, dir)
	totals := aggregate.ShardTotals{"shard0": {"energy": 100}, "shard1": {"energy": 50, "U": 10}}

	path, err := r.Render(totals, "alice", aggregate.AllShards)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != filepath.Join(dir, "alice_all.png") {
		t.Fatalf("path = %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 930 || b.Dy() != 540 {
		t.Fatalf("bounds = %v", b)
	}
	bg := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	if bg != (color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}) {
		t.Fatalf("background = %v", bg)
	}
	inked := false
	for y := 30; y < 58 && !inked; y++ {
		for x := 30; x < 100; x++ {
			if color.RGBAModel.Convert(img.At(x, y)).(color.RGBA) != bg {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Fatalf("energy cell has no text pixels")
	}

	if _, err := r.Render(aggregate.ShardTotals{}, "alice", aggregate.AllShards); err != nil {
		t.Fatalf("second Render: %v", err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 1 || ents[0].Name() != "alice_all.png" {
		t.Fatalf("expected a single overwritten file, got %v", ents)
	}
}

func TestRenderer_RenderError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := newTestRenderer(t, blocker)
	_, err := r.Render(aggregate.ShardTotals{}, "alice", "shard0")
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.Path != filepath.Join(blocker, "alice_shard0.png") {
		t.Fatalf("expected RenderError with path, got %v", err)
	}
}

func TestNewRenderer_RejectsBadColors(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Background = "12345"
	if _, err := NewRenderer(opts); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
}

func TestNewRenderer_RejectsBadPaletteEntry(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Palette = map[string]string{"energy": "#fff", "U": "rgb(1,2)"}
	_, err := NewRenderer(opts)
	if !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
}

func TestRenderer_PaletteColorsAndFallback(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Palette = map[string]string{"energy": "#102030"}
	r, err := NewRenderer(opts)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	labels := r.Layout(aggregate.Totals{}, "alice", aggregate.AllShards, fixedNow)
	energy, ok := findLabel(labels, "energy")
	if !ok || energy.Color != (RGB{R: 0x10, G: 0x20, B: 0x30}) {
		t.Fatalf("energy label = %+v", energy)
	}
	u, ok := findLabel(labels, "U")
	if !ok || u.Color != (RGB{R: 0x88, G: 0x88, B: 0x88}) {
		t.Fatalf("U should use the fallback color, got %+v", u)
	}
}
