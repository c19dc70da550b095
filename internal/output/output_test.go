package output

import (
	"bytes"
	"context"
	"image/color"
	"image/gif"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

func TestColormaps(t *testing.T) {
	if c := Jet(0.5); c.G != 255 {
		t.Errorf("expected full green in the middle, got %v", c)
	}
	if c := Jet(0); c.B <= c.R {
		t.Errorf("expected blue at 0, got %v", c)
	}
	if c := Jet(1); c.R <= c.B {
		t.Errorf("expected red at 1, got %v", c)
	}

	tests := []struct {
		v    float64
		want color.RGBA
	}{
		{0, coolWarm[0]},
		{0.5, color.RGBA{221, 221, 221, 255}},
		{1, coolWarm[len(coolWarm)-1]},
		{2, coolWarm[len(coolWarm)-1]},
	}
	for _, tt := range tests {
		if got := CoolWarm(tt.v); got != tt.want {
			t.Errorf("CoolWarm(%g): expected %v, got %v", tt.v, tt.want, got)
		}
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		v    float64
		want uint8
	}{
		{0, 0},
		{1, levels - 1},
		{-3, 0},
		{7, levels - 1},
		{math.NaN(), NoData},
	}
	for _, tt := range tests {
		if got := index(tt.v, 0, 1); got != tt.want {
			t.Errorf("index(%g): expected %d, got %d", tt.v, tt.want, got)
		}
	}
	if p := Palette(Jet); len(p) != levels+1 || p[NoData] != (color.RGBA{0, 0, 0, 255}) {
		t.Error("expected a black last palette entry")
	}
}

func TestRaster(t *testing.T) {
	m, err := mesh.New(1, 2, 4, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	f := vof.NewField(m, "f")
	vof.Fractions(m, f, func(x, y float64) float64 { return 0.5 - x })

	img := Raster(m, f, 8, 0, 1, Jet, nil)
	for py := 0; py < 8; py++ {
		for px := 0; px < 8; px++ {
			want := uint8(0)
			if px < 4 {
				want = levels - 1
			}
			if got := img.ColorIndexAt(px, py); got != want {
				t.Fatalf("pixel (%d, %d): expected %d, got %d", px, py, want, got)
			}
		}
	}

	// only the bottom half of the domain is drawn
	lower := func(l, i, j int) bool { return m.Y(l, j) < 0.5 }
	img = Raster(m, f, 8, 0, 1, Jet, lower)
	if img.ColorIndexAt(0, 0) != NoData || img.ColorIndexAt(0, 7) != levels-1 {
		t.Errorf("expected the top masked and the bottom drawn, got %d and %d",
			img.ColorIndexAt(0, 0), img.ColorIndexAt(0, 7))
	}
}

func TestNextEvent(t *testing.T) {
	w := New(Options{Every: 5e-4, MovieEvery: 1e-4})
	tests := []struct {
		t, want float64
	}{
		{0, 1e-4},
		{5e-5, 1e-4},
		{1e-4, 2e-4},
		{4.5e-4, 5e-4},
	}
	for _, tt := range tests {
		if got := w.NextEvent(tt.t); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("NextEvent(%g): expected %g, got %g", tt.t, tt.want, got)
		}
	}

	k := 0
	if !due(0, 1e-4, &k) || k != 1 {
		t.Errorf("expected t=0 to be due, k=%d", k)
	}
	if due(5e-5, 1e-4, &k) || k != 1 {
		t.Errorf("expected 5e-5 not to be due, k=%d", k)
	}
	if !due(1e-4, 1e-4, &k) || k != 2 {
		t.Errorf("expected 1e-4 to be due, k=%d", k)
	}
}

func TestWriterOnRun(t *testing.T) {
	cfg := dynamo.DefaultConfig()
	cfg.MinLevel, cfg.MaxLevel, cfg.InitLevel = 3, 5, 5
	cfg.TEnd = 2e-4
	s, err := dynamo.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(""); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	var log bytes.Buffer
	w := New(Options{
		Dir:        dir,
		Every:      1e-4,
		MovieEvery: 5e-5,
		LogEvery:   10,
		ImageSize:  32,
		MovieSize:  16,
		VortRange:  5e4,
		GIFFrames:  3,
		Log:        &log,
	})
	s.AddObserver(w)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if out, movie := w.Frames(); out != 3 || movie != 5 {
		t.Errorf("expected 3 outputs and 5 movie frames, got %d and %d", out, movie)
	}
	files := []string{
		"interface/0000.dat", "interface/0002.dat",
		"image/vof-0000.png", "image/vort-0002.png",
		"dump/dump-0", "dump/dump-0.0001", "dump/dump-0.0002",
		"movie.avi", "f.gif",
	}
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	facets, err := os.ReadFile(filepath.Join(dir, "interface", "0000.dat"))
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.Fields(string(facets))) == 0 {
		t.Error("expected facets for the initial interface")
	}

	avi, err := os.ReadFile(MoviePath(dir, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(avi) < 12 || string(avi[:4]) != "RIFF" || string(avi[8:12]) != "AVI " {
		t.Errorf("expected an AVI container, got %q", avi[:min(12, len(avi))])
	}
	// every JPEG frame starts with an SOI marker
	if n := bytes.Count(avi, []byte{0xff, 0xd8, 0xff}); n != 5 {
		t.Errorf("expected 5 movie frames, got %d", n)
	}

	g, err := os.Open(filepath.Join(dir, "f.gif"))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	anim, err := gif.DecodeAll(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != 3 {
		t.Errorf("expected 3 preview frames, got %d", len(anim.Image))
	}

	text := log.String()
	for _, want := range []string{"i=0  t=0  dt=1e-06", "i=10  ", "frame=0000", "frame=0002"} {
		if !strings.Contains(text, want) {
			t.Errorf("log is missing %q:\n%s", want, text)
		}
	}

	restored, err := dynamo.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Init(filepath.Join(dir, "dump", "dump-0.0002")); err != nil {
		t.Fatal(err)
	}
	if restored.State() != s.State() {
		t.Errorf("expected the last dump at %+v, got %+v", s.State(), restored.State())
	}
}

func TestMoviePath(t *testing.T) {
	if got := MoviePath("out", 0); got != filepath.Join("out", "movie.avi") {
		t.Errorf("expected out/movie.avi, got %s", got)
	}
	if got := MoviePath("out", 12); got != filepath.Join("out", "movie-00012.avi") {
		t.Errorf("expected out/movie-00012.avi, got %s", got)
	}
}
