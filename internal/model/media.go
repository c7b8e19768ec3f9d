// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypeBMP  = "image/bmp"
)

// Image formats recognised by content sniffing.
const (
	ImageFormatPNG  = "png"
	ImageFormatJPEG = "jpeg"
)

// UploadFormats are the formats accepted for classification. JPG and JFIF
// files carry JPEG content and are detected as ImageFormatJPEG.
var UploadFormats = map[string]bool{
	ImageFormatPNG:  true,
	ImageFormatJPEG: true,
}

// Upload describes an image accepted by intake and written to storage.
type Upload struct {
	Key          string `json:"key"`
	OriginalName string `json:"original_name"`
	Format       string `json:"format"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}
