// Package feature derives matchable feature vectors from snapshot images.
// The extractor here is a deterministic luminance-grid embedding: a stand-in
// with real comparison behavior that a face-embedding model can replace
// without touching the matcher or the ledger.
package feature

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	// GridSize is the edge length of the luminance grid; the resulting
	// vector has GridSize*GridSize dimensions.
	GridSize = 16

	// Dim is the dimension of extracted feature vectors.
	Dim = GridSize * GridSize

	// MaxImageBytes caps decoded snapshot payloads (2 MiB).
	MaxImageBytes = 2 * 1024 * 1024
)

// Extract decodes an image (JPEG, PNG, GIF or BMP) and computes its feature
// vector: the image downscaled to a GridSize x GridSize grayscale grid,
// mean-centered and L2-normalized. Identical images yield identical vectors.
func Extract(imageData []byte) ([]float32, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	if len(imageData) > MaxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", len(imageData), MaxImageBytes)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := toLuminanceGrid(img)

	return normalizeGrid(gray), nil
}

// toLuminanceGrid scales the image down and converts it to grayscale values.
func toLuminanceGrid(img image.Image) []float64 {
	dst := image.NewRGBA(image.Rect(0, 0, GridSize, GridSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	grid := make([]float64, 0, Dim)
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			grid = append(grid, luma)
		}
	}
	return grid
}

// normalizeGrid mean-centers the grid (coarse illumination invariance) and
// scales it to unit length.
func normalizeGrid(grid []float64) []float32 {
	var mean float64
	for _, v := range grid {
		mean += v
	}
	mean /= float64(len(grid))

	var norm float64
	centered := make([]float64, len(grid))
	for i, v := range grid {
		centered[i] = v - mean
		norm += centered[i] * centered[i]
	}
	norm = math.Sqrt(norm)

	feature := make([]float32, len(grid))
	if norm == 0 {
		// Flat image: fall back to a uniform unit vector so the feature
		// stays valid for distance computation.
		uniform := float32(1 / math.Sqrt(float64(len(grid))))
		for i := range feature {
			feature[i] = uniform
		}
		return feature
	}

	for i, v := range centered {
		feature[i] = float32(v / norm)
	}
	return feature
}
