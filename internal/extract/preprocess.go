package extract

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// targetSide is the length OCR input's longer side is scaled to,
	// upscaling small scans.
	targetSide = 2000
	// maxSourcePixels caps what is decoded at all.
	maxSourcePixels = 40_000_000
)

// Preprocessed is the outcome of image preparation. OK is false when the
// original bytes should be used instead.
type Preprocessed struct {
	Image []byte
	OK    bool
}

// Preprocess converts an image to grayscale, stretches its contrast, scales
// its longer side to targetSide and removes speckle noise. Any failure, or a
// source above maxSourcePixels, yields the zero Preprocessed.
func Preprocess(data []byte) Preprocessed {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return Preprocessed{}
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return Preprocessed{}
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Preprocessed{}
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return Preprocessed{}
	}

	img := imaging.Grayscale(src)
	img = normalizeContrast(img)
	img = scaleLongerSide(img, targetSide)
	img = medianFilter(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Preprocessed{}
	}
	return Preprocessed{Image: buf.Bytes(), OK: true}
}

// scaleLongerSide resizes img so its longer side is side pixels, keeping the
// aspect ratio. The result never exceeds side x side.
func scaleLongerSide(img *image.NRGBA, side int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, side, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, side, imaging.Lanczos)
}

// normalizeContrast linearly maps the darkest gray level to 0 and the
// brightest to 255. img must already be grayscale.
func normalizeContrast(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return img
	}

	span := int(hi) - int(lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8((int(c.R) - int(lo)) * 255 / span)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// medianFilter applies a 3x3 median to a grayscale image. Edge pixels use the
// neighbours that exist.
func medianFilter(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, 9)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					window = append(window, img.Pix[ny*img.Stride+nx*4])
				}
			}
			for i := 1; i < len(window); i++ {
				for j := i; j > 0 && window[j] < window[j-1]; j-- {
					window[j], window[j-1] = window[j-1], window[j]
				}
			}
			v := window[len(window)/2]

			o := y*out.Stride + x*4
			out.Pix[o] = v
			out.Pix[o+1] = v
			out.Pix[o+2] = v
			out.Pix[o+3] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	return out
}
