// Package render applies variant fit options to stored image blobs for
// the delivery endpoint.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// Options are the transformation parameters taken from a variant.
type Options struct {
	Fit    string
	Width  int
	Height int
}

// DetectFormat inspects the leading bytes and reports "jpeg", "png",
// "gif", "webp", or "" if unknown.
func DetectFormat(data []byte) string {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg"
	}
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "png"
	}
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' {
		return "gif"
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "webp"
	}
	return ""
}

// ContentType maps a format string to its MIME type.
func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Transform applies opts to the source image and returns the rendered
// bytes plus the output format. GIFs pass through untouched.
func Transform(src io.Reader, opts Options) ([]byte, string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", fmt.Errorf("reading source: %w", err)
	}

	format := DetectFormat(data)
	if format == "" {
		return nil, "", fmt.Errorf("unsupported or unrecognized image format")
	}
	if format == "gif" {
		return data, "gif", nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	img = applyFit(img, opts)

	out, err := encode(img, format)
	if err != nil {
		return nil, "", fmt.Errorf("encoding image: %w", err)
	}
	return out, format, nil
}

func applyFit(img image.Image, opts Options) image.Image {
	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	targetW := opts.Width
	targetH := opts.Height
	if targetW == 0 {
		targetW = origW
	}
	if targetH == 0 {
		targetH = origH
	}

	switch opts.Fit {
	case "contain":
		return fitContain(img, targetW, targetH)
	case "cover":
		return imaging.Fill(img, targetW, targetH, imaging.Center, imaging.Lanczos)
	case "crop":
		return imaging.CropCenter(img, targetW, targetH)
	case "pad":
		fitted := imaging.Fit(img, targetW, targetH, imaging.Lanczos)
		return imaging.PasteCenter(imaging.New(targetW, targetH, image.White), fitted)
	default:
		// scale-down: shrink to fit, never enlarge.
		if origW <= targetW && origH <= targetH {
			return img
		}
		return imaging.Fit(img, targetW, targetH, imaging.Lanczos)
	}
}

// fitContain scales to fit within the target box, enlarging if needed
// (unlike scale-down).
func fitContain(img image.Image, targetW, targetH int) image.Image {
	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	scaleW := float64(targetW) / float64(origW)
	scaleH := float64(targetH) / float64(origH)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	newW := int(float64(origW)*scale + 0.5)
	newH := int(float64(origH)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return buf.Bytes(), nil
}
