// Package present turns raycast frame buffers into something a person can
// look at: RGBA pixels, scaled grayscale images, PNG files and terminal cells.
package present

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

var ErrFrameSize = errors.New("frame buffer does not match its dimensions")

// Gray wraps a row-major width x height frame as an image without copying.
func Gray(frame []byte, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 || len(frame) != width*height {
		return nil, fmt.Errorf("%d samples for %dx%d: %w", len(frame), width, height, ErrFrameSize)
	}
	return &image.Gray{Pix: frame, Stride: width, Rect: image.Rect(0, 0, width, height)}, nil
}

// Scale resamples src to width x height with nearest-neighbour filtering,
// which keeps lit and unlit samples crisp.
func Scale(src image.Image, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ExpandRGBA copies each sample into the R, G and B channels of dst with
// full alpha. dst is reused when it holds 4*len(frame) bytes.
func ExpandRGBA(dst, frame []byte) []byte {
	if len(dst) != 4*len(frame) {
		dst = make([]byte, 4*len(frame))
	}
	for i, v := range frame {
		base := i * 4
		dst[base] = v
		dst[base+1] = v
		dst[base+2] = v
		dst[base+3] = 255
	}
	return dst
}

// EncodePNG scales the frame to the surface size and writes it as PNG.
func EncodePNG(w io.Writer, frame []byte, width, height int, surface image.Point) error {
	if surface.X <= 0 || surface.Y <= 0 {
		return fmt.Errorf("surface %v: %w", surface, ErrFrameSize)
	}
	img, err := Gray(frame, width, height)
	if err != nil {
		return err
	}
	var out image.Image = img
	if surface.X != width || surface.Y != height {
		out = Scale(img, surface.X, surface.Y)
	}
	return png.Encode(w, out)
}

// WritePNG writes the frame to path; see EncodePNG.
func WritePNG(path string, frame []byte, width, height int, surface image.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, frame, width, height, surface); err != nil {
		f.Close()
		return fmt.Errorf("encoding %q: %w", path, err)
	}
	return f.Close()
}
