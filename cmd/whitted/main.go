// whitted renders scene documents with a recursive ray tracer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"row-major/whitted/imagesink"
	"row-major/whitted/sampleimage"
	"row-major/whitted/scene"
	"row-major/whitted/scenepack"
)

var cmdRoot = &cobra.Command{
	Use: "whitted",
}

var cmdRender = &cobra.Command{
	Use:   "render",
	Short: "Render a scene document to an image",
	Args:  cobra.NoArgs,

	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		if cpuProfile != "" {
			f, err := os.Create(cpuProfile)
			if err != nil {
				return fmt.Errorf("while creating CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("while starting CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signalCh)
		go func() {
			select {
			case <-signalCh:
				glog.Infof("Interrupted; stopping render")
				cancel()
			case <-ctx.Done():
			}
		}()

		if err := render(ctx); err != nil {
			return err
		}

		if memProfile != "" {
			f, err := os.Create(memProfile)
			if err != nil {
				return fmt.Errorf("while creating memory profile: %w", err)
			}
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				return fmt.Errorf("while writing memory profile: %w", err)
			}
		}

		return nil
	},
}

var (
	sceneFile     string
	outputFile    string
	previewOutput string
	previewWidth  uint
	samplesFile   string
	resume        bool
	maxDepth      int
	seed          int64
	workers       int
	s3Region      string
	s3Endpoint    string
	cpuProfile    string
	memProfile    string
)

func init() {
	cmdRender.Flags().StringVar(&sceneFile, "scene", "", "Scene document (JSON or YAML)")
	cmdRender.Flags().StringVar(&outputFile, "output", "output.png", "Output image; a local path or s3://bucket/key.  The extension picks the format")
	cmdRender.Flags().StringVar(&previewOutput, "preview-output", "", "Optional downscaled preview image")
	cmdRender.Flags().UintVar(&previewWidth, "preview-width", 256, "Width of the preview image")
	cmdRender.Flags().StringVar(&samplesFile, "samples-file", "", "Sample checkpoint to write after rendering")
	cmdRender.Flags().BoolVar(&resume, "resume", false, "Add samples to the existing checkpoint in --samples-file")
	cmdRender.Flags().IntVar(&maxDepth, "max-depth", scene.DefaultMaxDepth, "Maximum number of bounces to consider")
	cmdRender.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmdRender.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of rows rendered in parallel")
	cmdRender.Flags().StringVar(&s3Region, "s3-region", "", "Region for s3:// outputs")
	cmdRender.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "Endpoint for s3:// outputs, for S3-compatible stores")
	cmdRender.Flags().StringVar(&cpuProfile, "cpu-profile", "", "write cpu profile to `file`")
	cmdRender.Flags().StringVar(&memProfile, "mem-profile", "", "write memory profile to `file`")
	cmdRender.MarkFlagRequired("scene")
}

func render(ctx context.Context) error {
	s, err := scenepack.LoadScene(sceneFile)
	if err != nil {
		return fmt.Errorf("while loading scene %s: %w", sceneFile, err)
	}
	s.MaxDepth = maxDepth

	glog.Infof("Loaded %s: %dx%d, %d samples per pixel, %d materials", sceneFile, s.Camera.Width(), s.Camera.Height(), s.ImageSamples, s.Materials.Len())

	sampleDB, err := openSamples(s)
	if err != nil {
		return err
	}

	start := time.Now()
	renderErr := scene.RenderScene(ctx, s, &scene.RenderOptions{Seed: seed, Workers: workers}, sampleDB, newProgressReporter())
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintln(os.Stderr)
	}

	// Save whatever was rendered, even on interrupt, so the render can be
	// resumed.
	if samplesFile != "" {
		if err := sampleimage.WriteToFile(sampleDB, samplesFile); err != nil {
			return fmt.Errorf("while writing samples file: %w", err)
		}
		glog.Infof("Wrote %d samples to %s", sampleDB.TotalSamples(), samplesFile)
	}

	if renderErr != nil {
		if errors.Is(renderErr, context.Canceled) && samplesFile != "" {
			return fmt.Errorf("render interrupted; resume with --resume --samples-file=%s: %w", samplesFile, renderErr)
		}
		return fmt.Errorf("while rendering: %w", renderErr)
	}
	glog.Infof("Rendered in %v", time.Since(start))

	img := sampleDB.Resolve()

	sink := imagesink.New(imagesink.Options{
		S3Region:   s3Region,
		S3Endpoint: s3Endpoint,
	})
	if err := sink.Write(ctx, img, outputFile); err != nil {
		return fmt.Errorf("while writing output: %w", err)
	}

	if previewOutput != "" {
		if err := sink.Write(ctx, imagesink.Preview(img, previewWidth), previewOutput); err != nil {
			return fmt.Errorf("while writing preview: %w", err)
		}
	}

	return nil
}

func openSamples(s *scene.Scene) (*sampleimage.Image, error) {
	if resume {
		if samplesFile == "" {
			return nil, fmt.Errorf("resumption requested, but --samples-file is not set")
		}

		sampleDB, err := sampleimage.ReadFromFile(samplesFile)
		if err != nil {
			return nil, fmt.Errorf("resumption requested, but encountered error loading existing file: %w", err)
		}

		if sampleDB.RowSize != s.Camera.Height() {
			return nil, fmt.Errorf("resumption requested, but the existing sample image doesn't have the right number of rows (got %d, want %d)", sampleDB.RowSize, s.Camera.Height())
		}

		if sampleDB.ColSize != s.Camera.Width() {
			return nil, fmt.Errorf("resumption requested, but the existing sample image doesn't have the right number of columns (got %d, want %d)", sampleDB.ColSize, s.Camera.Width())
		}

		glog.Infof("Resuming from %s with %d samples", samplesFile, sampleDB.TotalSamples())
		return sampleDB, nil
	}

	if samplesFile != "" {
		// Check that the samples file doesn't exist, to avoid blowing away
		// hours of render time.
		if _, err := os.Stat(samplesFile); err == nil {
			return nil, fmt.Errorf("resumption not requested, but samples file %s exists", samplesFile)
		}
	}

	sampleDB := &sampleimage.Image{}
	sampleDB.Resize(s.Camera.Height(), s.Camera.Width())
	return sampleDB, nil
}

// newProgressReporter draws a progress line on an interactive stderr, and
// otherwise logs progress every few seconds.
func newProgressReporter() scene.ProgressFunction {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return func(cur, total int) {
			fmt.Fprintf(os.Stderr, "\rRendering: %d/%d samples (%.1f%%)", cur, total, percent(cur, total))
		}
	}

	limiter := rate.NewLimiter(rate.Every(5*time.Second), 1)
	return func(cur, total int) {
		if cur == total || limiter.Allow() {
			glog.Infof("Rendering: %d/%d samples (%.1f%%)", cur, total, percent(cur, total))
		}
	}
}

func percent(cur, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(cur) / float64(total)
}

func main() {
	glog.CopyStandardLogTo("INFO")
	defer glog.Flush()

	// Expose glog's flags on the command line, and mark the go flag set as
	// parsed so glog doesn't complain.
	cmdRoot.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	flag.CommandLine.Parse([]string{})

	cmdRoot.AddCommand(cmdRender)

	if err := cmdRoot.Execute(); err != nil {
		glog.Exitf("Error: %v", err)
	}
}
