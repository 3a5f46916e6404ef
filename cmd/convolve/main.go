package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-convolve/config"
	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/geometry"
	"github.com/nvr-ai/go-convolve/images"
	"github.com/nvr-ai/go-convolve/images/vipsload"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to a YAML configuration file")
		input      = flag.String("in", "", "Input image (png, jpeg, gif, bmp, tiff, webp)")
		output     = flag.String("out", "", "Output image; the extension picks the format when -format is unset")
		kernelType = flag.String("kernel", "", "Kernel type: identity, box, gaussian, poisson")
		size       = flag.Int("size", 0, "Kernel side length")
		sigma      = flag.Float64("sigma", 0, "Gaussian sigma; <= 0 derives it from -size")
		seed       = flag.Uint64("seed", 0, "Seed for poisson kernels")
		strategy   = flag.String("strategy", "", "Convolution strategy: auto, direct, transform")
		edge       = flag.String("edge", "", "Edge mode: clamp, mirror, wrap")
		workers    = flag.Int("workers", 0, "Hardware concurrency used to size row tiles")
		format     = flag.String("format", "", "Output format: png, jpeg, webp")
		quality    = flag.Int("quality", 0, "JPEG or WebP quality")
		maxWidth   = flag.Uint("max-width", 0, "Down-scale inputs wider than this before convolving")
		maxHeight  = flag.Uint("max-height", 0, "Down-scale inputs taller than this before convolving")
		shrink     = flag.Bool("shrink-on-load", false, "Down-scale with libvips while decoding")
		crop       = flag.String("crop", "", "Crop before convolving: x,y,width,height")
		regions    = flag.String("regions", "", "Only convolve inside these rectangles: x,y,width,height;...")
		rotate     = flag.Float64("rotate", 0, "Rotate by this many degrees around the center after convolving")
		verbose    = flag.Bool("v", false, "Log engine decisions")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if *verbose {
		convolve.SetLogger(logger)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Explicit flags override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input.Path = *input
		case "out":
			cfg.Output.Path = *output
		case "kernel":
			cfg.Kernel.Type = config.KernelType(*kernelType)
		case "size":
			cfg.Kernel.Size = *size
		case "sigma":
			cfg.Kernel.Sigma = *sigma
		case "seed":
			cfg.Kernel.Seed = *seed
		case "strategy":
			cfg.Engine.Strategy = *strategy
		case "edge":
			cfg.Engine.Edge = *edge
		case "workers":
			cfg.Engine.Workers = *workers
		case "format":
			cfg.Output.Format = config.OutputFormat(*format)
		case "quality":
			cfg.Output.Quality = *quality
		case "max-width":
			cfg.Input.MaxWidth = *maxWidth
		case "max-height":
			cfg.Input.MaxHeight = *maxHeight
		}
	})

	if cfg.Input.Path == "" || cfg.Output.Path == "" {
		flag.Usage()
		os.Exit(2)
	}
	if isSet("out") && !isSet("format") {
		if f, err := images.FormatFromPath(cfg.Output.Path); err == nil {
			cfg.Output.Format = config.OutputFormat(f)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	buf, err := load(cfg.Input, *shrink)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", cfg.Input.Path, err)
	}
	logger.Info("input loaded", "path", cfg.Input.Path, "width", buf.Width, "height", buf.Height)

	if *crop != "" {
		r, err := parseRect(*crop)
		if err != nil {
			log.Fatalf("Invalid -crop: %v", err)
		}
		if buf, err = geometry.Crop(buf, r.Min.X, r.Min.Y, r.Dx(), r.Dy()); err != nil {
			log.Fatalf("Failed to crop: %v", err)
		}
	}

	k, err := cfg.BuildKernel()
	if err != nil {
		log.Fatalf("Failed to build kernel: %v", err)
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Fatalf("Invalid engine options: %v", err)
	}

	start := time.Now()
	if *regions != "" {
		var rects []image.Rectangle
		for _, part := range strings.Split(*regions, ";") {
			r, err := parseRect(part)
			if err != nil {
				log.Fatalf("Invalid -regions: %v", err)
			}
			rects = append(rects, r)
		}
		err = convolve.ConvolveRegions(buf, k, rects, opts...)
	} else {
		err = convolve.Convolve(buf, k, opts...)
	}
	if err != nil {
		log.Fatalf("Convolution failed: %v", err)
	}
	logger.Info("convolved", "kernel", k.String(), "duration", time.Since(start))

	if *rotate != 0 {
		angle := *rotate * math.Pi / 180
		center := image.Pt(buf.Width/2, buf.Height/2)
		if buf, err = geometry.Rotate(buf, angle, center, buf.Width, buf.Height); err != nil {
			log.Fatalf("Failed to rotate: %v", err)
		}
	}

	if err := images.EncodeFile(cfg.Output.Path, buf, images.ImageFormat(cfg.Output.Format), cfg.Output.Quality); err != nil {
		log.Fatalf("Failed to write %s: %v", cfg.Output.Path, err)
	}
	logger.Info("output written", "path", cfg.Output.Path, "format", cfg.Output.Format)
}

// load decodes the input, down-scaling it to the configured bounds.
func load(in config.InputConfig, shrink bool) (*images.Buffer[uint8], error) {
	src, err := images.LoadImage(in.Path)
	if err != nil {
		return nil, err
	}
	if in.MaxWidth == 0 && in.MaxHeight == 0 {
		return src.Buffer()
	}

	if shrink {
		w, h := fit(src.Width, src.Height, in.MaxWidth, in.MaxHeight)
		img, err := vipsload.Shrink(src.Data, w, h)
		if err != nil {
			return nil, err
		}
		return images.FromImage(img)
	}

	img, err := src.Decode()
	if err != nil {
		return nil, err
	}
	return images.FromImage(images.Thumbnail(img, in.MaxWidth, in.MaxHeight))
}

// fit returns the largest size within the bounds that keeps the aspect ratio.
func fit(w, h int, maxW, maxH uint) (int, int) {
	scale := 1.0
	if maxW > 0 && uint(w) > maxW {
		scale = min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 && uint(h) > maxH {
		scale = min(scale, float64(maxH)/float64(h))
	}
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

// parseRect parses "x,y,width,height". The extent must be positive.
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.Errorf("want x,y,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, errors.Wrapf(err, "invalid value %q", p)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, errors.Wrapf(images.ErrInvalidGeometry,
			"Width and height must be > 0 but received (%d,%d)", v[2], v[3])
	}
	return image.Rectangle{Min: image.Pt(v[0], v[1]), Max: image.Pt(v[0]+v[2], v[1]+v[3])}, nil
}

// isSet reports whether a flag was given on the command line.
func isSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Applies a 2D convolution kernel to an image.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -in photo.jpg -out blurred.png -kernel gaussian -size 9\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -in frame.png -out frame.jpg -kernel box -size 3 -strategy transform -edge mirror\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -config ./convolve.yaml -max-width 1280 -shrink-on-load\n", filepath.Base(os.Args[0]))
	}
}
