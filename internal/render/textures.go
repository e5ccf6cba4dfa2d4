// Package render turns generated chunks into things a client can display:
// PNG textures, encoded meshes and a feed of cache changes.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/noise"
)

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// HeightTexture draws a height field in grayscale, black at 0 and white at
// 1. Pixel (x, y) shows sample (x, y).
func HeightTexture(field noise.HeightField) *image.RGBA {
	size := field.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, toRGBA(black.BlendRgb(white, field.At(x, y))))
		}
	}
	return img
}

// ColorTexture draws a colour field as is.
func ColorTexture(field biome.ColorField) *image.RGBA {
	size := field.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, toRGBA(field.Colors[y*size+x]))
		}
	}
	return img
}

// BiomeMapTexture draws a width×height grid of biome indices, indexed
// [x*height+y], with one gray step per biome and cell pixels per entry.
func BiomeMapTexture(indices []int, width, height, biomeCount, cell int) (*image.RGBA, error) {
	if len(indices) != width*height {
		return nil, fmt.Errorf("render: %d biome indices for a %dx%d map", len(indices), width, height)
	}
	if cell < 1 {
		cell = 1
	}

	step := 0.0
	if biomeCount > 1 {
		step = 1 / float64(biomeCount-1)
	}

	img := image.NewRGBA(image.Rect(0, 0, width*cell, height*cell))
	for bx := 0; bx < width; bx++ {
		for by := 0; by < height; by++ {
			v := step * float64(indices[bx*height+by])
			c := toRGBA(colorful.Color{R: v, G: v, B: v})
			for px := bx * cell; px < (bx+1)*cell; px++ {
				for py := by * cell; py < (by+1)*cell; py++ {
					img.Set(px, py, c)
				}
			}
		}
	}
	return img, nil
}

// EncodePNG compresses img with the default PNG encoder.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
