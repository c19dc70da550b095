// Package output writes the files of a run on a fixed time schedule:
// interface facets, colour-mapped images, checkpoints and an MJPEG movie,
// plus the progress and log lines.
package output

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/icza/mjpeg"

	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

// Mixed cells are those with MixedLo < f < MixedHi; the vorticity image
// shows only these.
const (
	MixedLo = 0.05
	MixedHi = 0.95
)

const (
	gifSize     = 150
	movieFPS    = 25
	jpegQuality = 90
)

type Options struct {
	Dir        string
	Every      float64
	MovieEvery float64
	LogEvery   int
	ImageSize  int
	MovieSize  int
	VortRange  float64
	// GIFFrames is the length of the preview animation; zero disables it.
	GIFFrames int
	Log       io.Writer
}

// Writer is a dynamo observer and scheduler. The step size is shortened so
// that the run lands on every output and movie time.
type Writer struct {
	opts    Options
	frame   int
	movie   int
	started bool
	vort    *mesh.Field
	gif     []*image.Paletted
	avi     mjpeg.AviWriter
	jpg     bytes.Buffer
}

func New(opts Options) *Writer {
	if opts.Log == nil {
		opts.Log = os.Stderr
	}
	return &Writer{opts: opts}
}

// Frames returns the number of output and movie frames written so far,
// counted from t = 0.
func (w *Writer) Frames() (output, movie int) { return w.frame, w.movie }

func next(t, every float64) float64 {
	return (math.Floor(t/every+1e-9) + 1) * every
}

func (w *Writer) NextEvent(t float64) float64 {
	return math.Min(next(t, w.opts.Every), next(t, w.opts.MovieEvery))
}

// due reports whether t is the time of event *k and moves *k past t.
func due(t, every float64, k *int) bool {
	if t < float64(*k)*every-1e-9*every {
		return false
	}
	*k = int(math.Floor(t/every+1e-9)) + 1
	return true
}

func (w *Writer) OnStep(s *dynamo.Simulator, st dynamo.StepStats) error {
	state := s.State()
	if !w.started {
		// a restarted run keeps numbering from t = 0
		w.frame = int(math.Ceil(state.T/w.opts.Every - 1e-9))
		w.movie = int(math.Ceil(state.T/w.opts.MovieEvery - 1e-9))
		w.started = true
	}

	if state.I%w.opts.LogEvery == 0 {
		fmt.Fprintf(w.opts.Log, "i=%d  t=%g  dt=%g  |u|_max=%g\n",
			state.I, state.T, state.Dt, s.Flow.MaxVelocity())
	}

	n := w.frame
	if due(state.T, w.opts.Every, &w.frame) {
		if err := w.output(s, n); err != nil {
			return err
		}
	}
	n = w.movie
	if due(state.T, w.opts.MovieEvery, &w.movie) {
		if err := w.movieFrame(s, n); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) output(s *dynamo.Simulator, n int) error {
	m := s.Mesh
	t := s.State().T

	if err := WriteFacets(filepath.Join(w.opts.Dir, "interface", fmt.Sprintf("%04d.dat", n)), vof.Facets(m, s.F)); err != nil {
		return err
	}

	img := Raster(m, s.F, w.opts.ImageSize, 0, 1, Jet, nil)
	if err := WritePNG(filepath.Join(w.opts.Dir, "image", fmt.Sprintf("vof-%04d.png", n)), img); err != nil {
		return err
	}

	if w.vort == nil {
		w.vort = m.NewScratch("omega", [4]mesh.Boundary{mesh.Neumann{}, mesh.Neumann{}, mesh.Neumann{}, mesh.Neumann{}})
	}
	s.Flow.Vorticity(w.vort)
	mixed := func(l, i, j int) bool {
		c := s.F.At(m, l, i, j)
		return c > MixedLo && c < MixedHi
	}
	r := w.opts.VortRange
	img = Raster(m, w.vort, w.opts.ImageSize, -r, r, CoolWarm, mixed)
	if err := WritePNG(filepath.Join(w.opts.Dir, "image", fmt.Sprintf("vort-%04d.png", n)), img); err != nil {
		return err
	}

	if err := s.DumpFile(filepath.Join(w.opts.Dir, "dump", fmt.Sprintf("dump-%g", t))); err != nil {
		return err
	}

	ux := m.MaxLeaves(func(l, i, j int) float64 { return math.Abs(s.Flow.U[0].At(m, l, i, j)) })
	uy := m.MaxLeaves(func(l, i, j int) float64 { return math.Abs(s.Flow.U[1].At(m, l, i, j)) })
	fmt.Fprintf(w.opts.Log, "t=%.6f  frame=%04d  |u|=%g\n", t, n, ux+uy)
	return nil
}

// MoviePath is the movie of a run whose first frame is n. A restarted run
// starts a new file.
func MoviePath(dir string, n int) string {
	if n == 0 {
		return filepath.Join(dir, "movie.avi")
	}
	return filepath.Join(dir, fmt.Sprintf("movie-%05d.avi", n))
}

func (w *Writer) movieFrame(s *dynamo.Simulator, n int) error {
	img := Raster(s.Mesh, s.F, w.opts.MovieSize, 0, 1, Jet, nil)
	if w.avi == nil {
		if err := os.MkdirAll(w.opts.Dir, 0755); err != nil {
			return err
		}
		size := int32(w.opts.MovieSize)
		avi, err := mjpeg.New(MoviePath(w.opts.Dir, n), size, size, movieFPS)
		if err != nil {
			return fmt.Errorf("movie: %w", err)
		}
		w.avi = avi
	}
	w.jpg.Reset()
	if err := jpeg.Encode(&w.jpg, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return err
	}
	if err := w.avi.AddFrame(w.jpg.Bytes()); err != nil {
		return fmt.Errorf("movie frame %d: %w", n, err)
	}
	if w.opts.GIFFrames > 0 {
		size := min(gifSize, w.opts.MovieSize)
		w.gif = append(w.gif, Raster(s.Mesh, s.F, size, 0, 1, Jet, nil))
		if len(w.gif) > w.opts.GIFFrames {
			w.gif = w.gif[1:]
		}
	}
	return nil
}

// Close finishes the movie and writes the preview animation of the last
// movie frames.
func (w *Writer) Close() error {
	var errs []error
	if w.avi != nil {
		errs = append(errs, w.avi.Close())
		w.avi = nil
	}
	errs = append(errs, w.writeGIF())
	return errors.Join(errs...)
}

func (w *Writer) writeGIF() error {
	if len(w.gif) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range w.gif {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 4)
	}
	f, err := create(filepath.Join(w.opts.Dir, "f.gif"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		return err
	}
	return f.Close()
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func WritePNG(path string, img image.Image) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	return f.Close()
}

// WriteFacets writes one segment per block: two "x y" lines and a blank
// line.
func WriteFacets(path string, segs []vof.Segment) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, s := range segs {
		fmt.Fprintf(bw, "%g %g\n%g %g\n\n", s.A.X, s.A.Y, s.B.X, s.B.Y)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
