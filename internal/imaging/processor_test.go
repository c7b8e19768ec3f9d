// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/soilstation/internal/model"
)

// createTestImage creates a simple test image with the given dimensions.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg magic bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, model.ImageFormatJPEG},
		{"jfif header", append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, []byte("JFIF\x00")...), model.ImageFormatJPEG},
		{"png magic bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, model.ImageFormatPNG},
		{"gif magic bytes", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}, "gif"},
		{"bmp magic bytes", []byte("BM\x00\x00\x00\x00"), "bmp"},
		{"webp header", []byte("RIFF\x00\x00\x00\x00WEBPVP"), "webp"},
		{"tiff rejected", []byte{0x49, 0x49, 0x2A, 0x00}, ""},
		{"text", []byte("hello world"), ""},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestIsUploadFormat(t *testing.T) {
	assert.True(t, IsUploadFormat(model.ImageFormatPNG))
	assert.True(t, IsUploadFormat(model.ImageFormatJPEG))
	assert.False(t, IsUploadFormat("gif"))
	assert.False(t, IsUploadFormat("webp"))
	assert.False(t, IsUploadFormat(""))
}

func TestFormatMimeTypeAndExtension(t *testing.T) {
	tests := []struct {
		format string
		mime   string
		ext    string
	}{
		{model.ImageFormatJPEG, model.MimeTypeJPEG, ".jpg"},
		{model.ImageFormatPNG, model.MimeTypePNG, ".png"},
		{"gif", model.MimeTypeGIF, ".gif"},
		{"webp", model.MimeTypeWebP, ".webp"},
		{"bmp", model.MimeTypeBMP, ".bmp"},
		{"", "application/octet-stream", ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.mime, FormatMimeType(tt.format))
			assert.Equal(t, tt.ext, FormatExtension(tt.format))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		img, err := Decode(encodeJPEG(t, createTestImage(30, 20)))
		require.NoError(t, err)
		assert.Equal(t, 30, img.Bounds().Dx())
		assert.Equal(t, 20, img.Bounds().Dy())
	})

	t.Run("gif", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, gif.Encode(&buf, createTestImage(8, 8), nil))
		img, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := Decode([]byte("definitely not an image"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("truncated png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, createTestImage(16, 16)))
		_, err := Decode(buf.Bytes()[:40])
		assert.Error(t, err)
	})
}

func TestResize(t *testing.T) {
	img := Resize(createTestImage(640, 480), 220, 220)

	assert.Equal(t, 220, img.Bounds().Dx())
	assert.Equal(t, 220, img.Bounds().Dy())
}

func TestPNGDataURI(t *testing.T) {
	uri, err := PNGDataURI(encodeJPEG(t, createTestImage(12, 9)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, PNGDataURIPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, PNGDataURIPrefix))
	require.NoError(t, err)
	assert.Equal(t, model.ImageFormatPNG, DetectFormat(raw))

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 9), img.Bounds())
}

func TestPNGDataURI_Invalid(t *testing.T) {
	_, err := PNGDataURI(nil)
	assert.Error(t, err)
}

func TestApplyOrientation(t *testing.T) {
	tests := []struct {
		orientation int
		wantW       int
		wantH       int
	}{
		{0, 10, 20},
		{1, 10, 20},
		{2, 10, 20},
		{3, 10, 20},
		{4, 10, 20},
		{5, 20, 10},
		{6, 20, 10},
		{7, 20, 10},
		{8, 20, 10},
		{9, 10, 20},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("orientation_%d", tt.orientation), func(t *testing.T) {
			result := applyOrientation(createTestImage(10, 20), tt.orientation)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantW, result.Bounds().Dx())
			assert.Equal(t, tt.wantH, result.Bounds().Dy())
		})
	}
}

func TestReadExifOrientation_NoExif(t *testing.T) {
	data := encodeJPEG(t, createTestImage(4, 4))
	assert.Equal(t, 1, readExifOrientation(bytes.NewReader(data)))
}
