package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"runtime"
	"time"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-convolve/binding/cvmat"
	"github.com/nvr-ai/go-convolve/config"
	"github.com/nvr-ai/go-convolve/convolve"
	"github.com/nvr-ai/go-convolve/images"
)

func main() {
	deviceID := flag.Int("device", 0, "Video capture device")
	file := flag.String("file", "", "Read frames from a video file instead of a device")
	configFile := flag.String("config", "", "Path to a YAML configuration file")
	kernelType := flag.String("kernel", "gaussian", "Kernel type: identity, box, gaussian, poisson")
	size := flag.Int("size", 9, "Kernel side length")
	strategy := flag.String("strategy", "auto", "Convolution strategy: auto, direct, transform")
	headless := flag.Bool("headless", false, "Do not open a window")
	frames := flag.Int("frames", 0, "Stop after this many frames (0 runs until the stream ends)")
	maxRes := flag.String("max-resolution", "", "Down-scale frames to the highest resolution under this WxH, e.g. 1280x720")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		cfg.Kernel.Type = config.KernelType(*kernelType)
		cfg.Kernel.Size = *size
		cfg.Engine.Strategy = *strategy
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
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

	// One pool serves every frame.
	pool := workerpool.New(runtime.GOMAXPROCS(0))
	defer pool.Close()
	opts = append(opts, convolve.WithPool(pool), convolve.WithScratchPool(images.NewPool[uint8]()))

	var capture *gocv.VideoCapture
	if *file != "" {
		capture, err = gocv.VideoCaptureFile(*file)
	} else {
		capture, err = gocv.OpenVideoCapture(*deviceID)
	}
	if err != nil {
		log.Fatalf("Failed to open capture: %v", err)
	}
	defer capture.Close()

	var window *gocv.Window
	if !*headless {
		window = gocv.NewWindow("Convolve: " + k.String())
		defer window.Close()
	}

	img := gocv.NewMat()
	defer img.Close()
	scaled := gocv.NewMat()
	defer scaled.Close()

	green := color.RGBA{0, 255, 0, 0}

	// FPS tracking variables
	fps := 0.0
	frameCount := 0
	total := 0
	lastTime := time.Now()
	var spent time.Duration

	fmt.Printf("start reading frames with kernel %s\n", k)
	for *frames == 0 || total < *frames {
		if ok := capture.Read(&img); !ok {
			fmt.Printf("stream ended after %d frames\n", total)
			return
		}
		if img.Empty() {
			continue
		}

		frame := &img
		if *maxRes != "" {
			w, h, err := target(*maxRes, img.Cols(), img.Rows())
			if err != nil {
				log.Fatalf("Invalid -max-resolution: %v", err)
			}
			if w != img.Cols() || h != img.Rows() {
				gocv.Resize(img, &scaled, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
				frame = &scaled
			}
		}

		start := time.Now()
		if err := cvmat.Convolve(frame, k, opts...); err != nil {
			log.Fatalf("Convolution failed on frame %d: %v", total, err)
		}
		spent += time.Since(start)

		frameCount++
		total++
		currentTime := time.Now()
		elapsed := currentTime.Sub(lastTime).Seconds()

		if elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			fmt.Printf("%dx%d | FPS: %.2f | convolve: %v/frame\n",
				frame.Cols(), frame.Rows(), fps, spent/time.Duration(frameCount))
			frameCount = 0
			spent = 0
			lastTime = currentTime
		}

		if window != nil {
			gocv.PutText(frame, fmt.Sprintf("%.1f FPS", fps), image.Pt(10, 30), gocv.FontHersheyPlain, 1.5, green, 2)
			window.IMShow(*frame)
			if window.WaitKey(1) == 27 {
				return
			}
		}
	}
}

// target returns the frame size to convolve at: the highest supported
// resolution that fits within limit, or the frame's own size when it
// already fits.
func target(limit string, w, h int) (int, int, error) {
	var maxW, maxH int
	if _, err := fmt.Sscanf(limit, "%dx%d", &maxW, &maxH); err != nil {
		return 0, 0, errors.Wrapf(err, "invalid resolution %q", limit)
	}
	if w <= maxW && h <= maxH {
		return w, h, nil
	}
	res, ok := images.GetHighestResolutionUnderDimensions(maxW, maxH)
	if !ok {
		return 0, 0, errors.Errorf("no supported resolution fits %s", limit)
	}
	return res.Width, res.Height, nil
}
