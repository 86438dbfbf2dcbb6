package project

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the supported upload formats.
	_ "image/gif"
	_ "image/png"
)

// jpegQuality is used when re-encoding uploads to the canonical format.
const jpegQuality = 85

// imageInfo is the geometry derived from an upload at ingest time.
type imageInfo struct {
	Width, Height int
	AspectW       int
	AspectH       int
	Orientation   string
}

func decodeImageInfo(b []byte) (imageInfo, string, image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return imageInfo{}, "", nil, fmt.Errorf("%w: decode image: %v", ErrValidation, err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	d := gcd(w, h)
	info := imageInfo{Width: w, Height: h, AspectW: w / d, AspectH: h / d}
	switch {
	case w > h:
		info.Orientation = "landscape"
	case h > w:
		info.Orientation = "portrait"
	default:
		info.Orientation = "square"
	}
	return info, format, img, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// injectJPEGComment inserts a COM segment with the given text right after
// the SOI marker, so the caption travels inside the stored bytes. JPEG
// comments are capped at 65533 bytes; longer text is truncated.
func injectJPEGComment(b []byte, comment string) []byte {
	if len(b) < 2 || b[0] != 0xFF || b[1] != 0xD8 || comment == "" {
		return b
	}
	c := []byte(comment)
	if len(c) > 0xFFFF-2 {
		c = c[:0xFFFF-2]
	}
	seg := make([]byte, 0, 4+len(c))
	length := len(c) + 2
	seg = append(seg, 0xFF, 0xFE, byte(length>>8), byte(length&0xFF))
	seg = append(seg, c...)

	out := make([]byte, 0, len(b)+len(seg))
	out = append(out, b[:2]...)
	out = append(out, seg...)
	out = append(out, b[2:]...)
	return out
}
