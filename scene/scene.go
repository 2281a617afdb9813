// Package scene holds a loaded scene and the recursive integrator that renders
// it.
package scene

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"row-major/whitted/camera"
	"row-major/whitted/contact"
	"row-major/whitted/material"
	"row-major/whitted/ray"
	"row-major/whitted/rgb"
	"row-major/whitted/sampleimage"
	"row-major/whitted/surface"
)

// DefaultMaxDepth bounds the number of bounces a path may take.
const DefaultMaxDepth = 64

type Scene struct {
	Camera *camera.Camera

	// Root of the surface hierarchy.
	Surfaces *surface.Group

	Materials material.Store

	// Primary rays per pixel.
	ImageSamples int

	// Color of rays that escape the scene.
	Background rgb.T

	MaxDepth int
}

// New returns an empty scene with the default depth limit.
func New(cam *camera.Camera) *Scene {
	return &Scene{
		Camera:       cam,
		Surfaces:     &surface.Group{},
		ImageSamples: 1,
		MaxDepth:     DefaultMaxDepth,
	}
}

// TraceColor returns the color carried back along r, which has already
// bounced depth times.
func (s *Scene) TraceColor(r *ray.Ray, depth int, rng *rand.Rand) rgb.T {
	hit := contact.New()
	if !s.Surfaces.Intersect(r, &hit) {
		return s.Background
	}

	mtl := s.Materials.Get(hit.Material)
	emitted := mtl.Emitted(r, &hit)
	if depth >= s.MaxDepth {
		return emitted
	}

	var scattered ray.Ray
	attenuation, ok := mtl.Scatter(r, &hit, rng, &scattered)
	if !ok {
		return emitted
	}

	return rgb.Add(emitted, rgb.Attenuate(attenuation, s.TraceColor(&scattered, depth+1, rng)))
}

// SamplePixel traces one jittered primary ray through pixel (row, col).
func (s *Scene) SamplePixel(row, col int, rng *rand.Rand) rgb.T {
	r := s.Camera.GenerateRay(float64(col)+rng.Float64(), float64(row)+rng.Float64())
	return s.TraceColor(&r, 0, rng)
}

// rowSource returns the random stream for one image row.  Streams depend only
// on the seed, the row, and how many samples the row already has, so a render
// is reproducible however the rows are split among workers.
func rowSource(seed int64, row int, existing int64) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ (int64(row)+1)*0x5851f42d4c957f2d ^ existing*0x14057b7ef767814f))
}

type ChunkWorker struct {
	sampleDB         *sampleimage.Image
	progressFunction func(int)

	seed          int64
	targetSamples int

	rowSrc int
	rowLim int

	scene *Scene
}

func (w *ChunkWorker) Render(ctx context.Context) error {
	for cr := w.rowSrc; cr < w.rowLim; cr++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r := cr - w.rowSrc

		var existing int64
		for cc := 0; cc < w.sampleDB.ColSize; cc++ {
			existing += w.sampleDB.ReadSample(r, cc).Count
		}
		rng := rowSource(w.seed, cr, existing)

		samplesCollected := 0
		for cc := 0; cc < w.sampleDB.ColSize; cc++ {
			samp := w.sampleDB.ReadSample(r, cc)
			for cs := samp.Count; cs < int64(w.targetSamples); cs++ {
				w.sampleDB.RecordSample(r, cc, w.scene.SamplePixel(cr, cc, rng))
				samplesCollected++
			}
		}

		w.progressFunction(samplesCollected)
	}
	return nil
}

type RenderOptions struct {
	// Seed for the per-row random streams.
	Seed int64

	// Number of chunks rendered concurrently.  Zero means one per CPU.
	Workers int
}

// ProgressFunction receives the number of samples collected so far and the
// number the render needs in total.
type ProgressFunction func(int, int)

// RenderScene tops sampleDB up to scene.ImageSamples samples per pixel.
// Samples already present, as when resuming a render, are kept.  Rows are
// split into chunks that render in parallel.  If ctx is cancelled, RenderScene
// stops between rows and returns the context's error; sampleDB then holds
// every row that finished.
func RenderScene(ctx context.Context, scene *Scene, options *RenderOptions, sampleDB *sampleimage.Image, progressFunction ProgressFunction) error {
	if sampleDB.RowSize != scene.Camera.Height() || sampleDB.ColSize != scene.Camera.Width() {
		return fmt.Errorf("sample image is %dx%d, but the camera resolution is %dx%d", sampleDB.ColSize, sampleDB.RowSize, scene.Camera.Width(), scene.Camera.Height())
	}

	targetSamples := scene.ImageSamples
	if targetSamples < 1 {
		targetSamples = 1
	}

	// Count the samples we still need, for reporting progress.
	totalSamples := 0
	for _, n := range sampleDB.Counts {
		if n < int64(targetSamples) {
			totalSamples += targetSamples - int(n)
		}
	}

	curProgress := 0

	// progressMutex locks both curProgress and sampleDB.
	progressMutex := sync.Mutex{}

	workers := options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Cut the image into more chunks than workers so that slow regions of the
	// image don't leave the other workers idle.
	chunkCount := 4 * workers
	workUnit := (sampleDB.RowSize + chunkCount - 1) / chunkCount
	if workUnit < 1 {
		workUnit = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)
	for rowSrc := 0; rowSrc < sampleDB.RowSize; rowSrc += workUnit {
		rowLim := rowSrc + workUnit
		if rowLim > sampleDB.RowSize {
			rowLim = sampleDB.RowSize
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		worker := &ChunkWorker{
			progressFunction: func(subProgress int) {
				progressMutex.Lock()
				defer progressMutex.Unlock()
				curProgress += subProgress
				if progressFunction != nil {
					progressFunction(curProgress, totalSamples)
				}
			},
			seed:          options.Seed,
			targetSamples: targetSamples,
			rowSrc:        rowSrc,
			rowLim:        rowLim,
			scene:         scene,
		}

		progressMutex.Lock()
		worker.sampleDB = sampleDB.Cut(rowSrc, rowLim, 0, sampleDB.ColSize)
		progressMutex.Unlock()

		g.Go(func() error {
			defer sem.Release(1)
			err := worker.Render(gctx)

			// Keep partial work, so a cancelled render can still be saved
			// and resumed.
			progressMutex.Lock()
			defer progressMutex.Unlock()
			sampleDB.Paste(worker.sampleDB, worker.rowSrc, 0)

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// RenderImage renders the scene from scratch and resolves it to an image.
func (s *Scene) RenderImage(ctx context.Context, seed int64) (*image.RGBA, error) {
	sampleDB := &sampleimage.Image{}
	sampleDB.Resize(s.Camera.Height(), s.Camera.Width())

	if err := RenderScene(ctx, s, &RenderOptions{Seed: seed, Workers: 1}, sampleDB, nil); err != nil {
		return nil, fmt.Errorf("while rendering: %w", err)
	}

	return sampleDB.Resolve(), nil
}
