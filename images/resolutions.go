// Package images - Standard frame sizes used to size convolution workloads.
package images

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// AspectRatio represents an aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Defines common aspect ratios.
const (
	AspectRatio11  AspectRatio = "1:1"
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType is the short alias of a resolution, as accepted on the command line.
type ResolutionType string

// Defines the supported resolution aliases.
const (
	ResolutionTypeThumb ResolutionType = "thumb"
	ResolutionTypeVGA   ResolutionType = "vga"
	ResolutionType720p  ResolutionType = "720p"
	ResolutionType1MP   ResolutionType = "1mp"
	ResolutionType1080p ResolutionType = "1080p"
	ResolutionType1440p ResolutionType = "1440p"
	ResolutionType6MP   ResolutionType = "6mp"
	ResolutionType4K    ResolutionType = "4k"
	ResolutionType8K    ResolutionType = "8k"
)

// Resolution describes a frame size.
type Resolution struct {
	// Type is the short alias of the resolution.
	Type ResolutionType `json:"type" yaml:"type"`
	// Name is the human readable name.
	Name string `json:"name" yaml:"name"`
	// AspectRatio is the nominal aspect ratio.
	AspectRatio AspectRatio `json:"aspectRatio" yaml:"aspectRatio"`
	// Width in pixels.
	Width int `json:"width" yaml:"width"`
	// Height in pixels.
	Height int `json:"height" yaml:"height"`
	// Large flags sizes that need several hundred megabytes of transform workspace.
	Large bool `json:"large" yaml:"large"`
}

// Pixels returns the pixel count, or 0 for degenerate sizes.
func (r Resolution) Pixels() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// MegaPixels returns the pixel count in millions rounded to two decimals
// (e.g., 2.07 for 1080p).
func (r Resolution) MegaPixels() float64 {
	mp := float64(r.Pixels()) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions is kept sorted by pixel count.
var resolutions = []Resolution{
	{Type: ResolutionTypeThumb, Name: "Thumbnail", AspectRatio: AspectRatio11, Width: 256, Height: 256},
	{Type: ResolutionTypeVGA, Name: "VGA", AspectRatio: AspectRatio43, Width: 640, Height: 480},
	{Type: ResolutionType720p, Name: "HD 720p", AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	{Type: ResolutionType1MP, Name: "1MP (5:4)", AspectRatio: AspectRatio54, Width: 1280, Height: 1024},
	{Type: ResolutionType1080p, Name: "Full HD 1080p", AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
	{Type: ResolutionType1440p, Name: "QHD 1440p", AspectRatio: AspectRatio169, Width: 2560, Height: 1440},
	{Type: ResolutionType6MP, Name: "6MP (3:2)", AspectRatio: AspectRatio32, Width: 3072, Height: 2048},
	{Type: ResolutionType4K, Name: "4K UHD", AspectRatio: AspectRatio169, Width: 3840, Height: 2160, Large: true},
	{Type: ResolutionType8K, Name: "8K UHD", AspectRatio: AspectRatio169, Width: 7680, Height: 4320, Large: true},
}

// GetAllResolutions returns every known resolution ordered by pixel count.
func GetAllResolutions() []Resolution {
	all := make([]Resolution, len(resolutions))
	copy(all, resolutions)
	return all
}

// GetSupportedResolutions returns the resolutions that are not flagged Large.
func GetSupportedResolutions() []Resolution {
	supported := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		if !res.Large {
			supported = append(supported, res)
		}
	}
	return supported
}

// GetResolutionByType looks up a resolution by alias, case-insensitively.
// A "WxH" string is accepted as an ad-hoc resolution.
//
// Arguments:
//   - t: The alias ("1080p") or explicit size ("800x600").
//
// Returns:
//   - Resolution: The matching resolution.
//   - bool: False when nothing matched.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	key := ResolutionType(strings.ToLower(strings.TrimSpace(string(t))))
	for _, res := range resolutions {
		if res.Type == key {
			return res, true
		}
	}
	var w, h int
	if n, err := fmt.Sscanf(string(key), "%dx%d", &w, &h); err == nil && n == 2 && w > 0 && h > 0 {
		return Resolution{
			Type:   key,
			Name:   string(key),
			Width:  w,
			Height: h,
		}, true
	}
	return Resolution{}, false
}

// GetHighestResolutionUnderDimensions returns the largest resolution that fits
// inside width x height.
//
// Arguments:
//   - width: The maximum width.
//   - height: The maximum height.
//
// Returns:
//   - Resolution: The largest fitting resolution.
//   - bool: True if a resolution was found.
func GetHighestResolutionUnderDimensions(width, height int) (Resolution, bool) {
	idx := sort.Search(len(resolutions), func(i int) bool {
		return resolutions[i].Pixels() > width*height
	})
	for i := idx - 1; i >= 0; i-- {
		if resolutions[i].Width <= width && resolutions[i].Height <= height {
			return resolutions[i], true
		}
	}
	return Resolution{}, false
}
