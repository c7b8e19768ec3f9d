// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging sniffs, decodes and re-encodes images for intake,
// classification and recommendation display.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/soilstation/internal/model"
)

// MaxPixels bounds the decoded size of any image to guard against
// decompression bombs.
const MaxPixels = 40_000_000

// PNGDataURIPrefix precedes the base64 payload of an embedded PNG.
const PNGDataURIPrefix = "data:image/png;base64,"

var (
	// ErrUnknownFormat is returned when content sniffing finds no image.
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrTooLarge is returned when an image exceeds MaxPixels.
	ErrTooLarge = errors.New("image dimensions too large")
)

// DetectFormat sniffs the image format from raw bytes. The declared file
// name and content type are never consulted.
func DetectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return model.ImageFormatJPEG
	case strings.Contains(contentType, "png"):
		return model.ImageFormatPNG
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "bmp"):
		return "bmp"
	default:
		return ""
	}
}

// IsUploadFormat reports whether format is accepted for classification.
func IsUploadFormat(format string) bool {
	return model.UploadFormats[format]
}

// FormatMimeType converts a detected format to its MIME type.
func FormatMimeType(format string) string {
	switch format {
	case model.ImageFormatJPEG:
		return model.MimeTypeJPEG
	case model.ImageFormatPNG:
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	case "webp":
		return model.MimeTypeWebP
	case "bmp":
		return model.MimeTypeBMP
	default:
		return "application/octet-stream"
	}
}

// FormatExtension returns the file extension used when storing format.
func FormatExtension(format string) string {
	switch format {
	case model.ImageFormatJPEG:
		return ".jpg"
	case "":
		return ".bin"
	default:
		return "." + format
	}
}

// Dimensions returns the width and height of encoded image data without
// decoding pixel data.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode decodes image data of any registered format and applies the EXIF
// orientation, if present.
func Decode(data []byte) (image.Image, error) {
	if DetectFormat(data) == "" {
		return nil, ErrUnknownFormat
	}

	w, h, err := Dimensions(data)
	if err != nil {
		return nil, err
	}
	if w*h > MaxPixels {
		return nil, ErrTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	orientation := readExifOrientation(bytes.NewReader(data))
	return applyOrientation(img, orientation), nil
}

// Resize scales img to exactly width x height using nearest-neighbour
// sampling. Aspect ratio is not preserved.
func Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.NearestNeighbor)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGDataURI decodes stored image bytes of any supported format, re-encodes
// them as PNG and returns a "data:image/png;base64," URI.
func PNGDataURI(data []byte) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}
	encoded, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(encoded), nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies an EXIF orientation transformation.
// 1 normal, 2 flip H, 3 rotate 180, 4 flip V, 5 transpose,
// 6 rotate 90 CW, 7 transverse, 8 rotate 90 CCW.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
