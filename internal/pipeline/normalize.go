package pipeline

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"draftdesk/internal/infra"
)

const (
	// Inline images ride in the request body as base64 text; the provider
	// rejects images past ~5MB, so the encoded form is capped at 3.7MB.
	maxEncodedBytes = 3700 * 1024

	firstPassWidth    = 1920
	firstPassQuality  = 85
	secondPassWidth   = 1280
	secondPassQuality = 75
)

// NormalizeImage recompresses one uploaded photo into a JPEG that fits the
// provider's per-image request ceiling. The second return value is false when
// the image must be dropped. A decode or re-encode failure degrades to the
// original bytes instead of dropping, as long as those still fit: one bad
// image must never abort the job.
func NormalizeImage(raw []byte, logger infra.Logger) ([]byte, bool) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		logger.Warn().Err(err).Msg("normalize: decode failed, using original bytes")
		return passthrough(raw, logger)
	}

	encoded, err := encodeJPEG(scaleToWidth(src, firstPassWidth), firstPassQuality)
	if err != nil {
		logger.Warn().Err(err).Msg("normalize: encode failed, using original bytes")
		return passthrough(raw, logger)
	}
	if fitsCeiling(encoded) {
		return encoded, true
	}

	logger.Warn().
		Int("encoded_bytes", base64.StdEncoding.EncodedLen(len(encoded))).
		Msg("normalize: first pass oversized, resizing smaller")

	encoded, err = encodeJPEG(scaleToWidth(src, secondPassWidth), secondPassQuality)
	if err != nil || !fitsCeiling(encoded) {
		logger.Warn().Msg("normalize: image still oversized after second pass, dropping")
		return nil, false
	}
	return encoded, true
}

func passthrough(raw []byte, logger infra.Logger) ([]byte, bool) {
	if !fitsCeiling(raw) {
		logger.Warn().Int("bytes", len(raw)).Msg("normalize: unprocessable image exceeds request ceiling, dropping")
		return nil, false
	}
	return raw, true
}

// scaleToWidth shrinks src to the given width preserving aspect ratio.
// Smaller images are returned unchanged, never upscaled.
func scaleToWidth(src image.Image, width int) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() <= width {
		return src
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fitsCeiling(data []byte) bool {
	return base64.StdEncoding.EncodedLen(len(data)) <= maxEncodedBytes
}
