// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides path and naming helpers shared by storage and the
// upload workflow.
package util

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFilenameLength bounds a cleaned client file name in bytes.
const MaxFilenameLength = 255

// ErrUnsafeKey is returned for storage keys that could escape their root.
var ErrUnsafeKey = errors.New("unsafe storage key")

// CleanFilename reduces a client-supplied file name to a display-safe base
// name. Directory parts written with either separator are dropped, control
// characters are removed and the result is truncated to MaxFilenameLength.
// It returns "" when nothing usable remains.
func CleanFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}

	base = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)

	if len(base) > MaxFilenameLength {
		base = strings.ToValidUTF8(base[:MaxFilenameLength], "")
	}
	return base
}

// SafeJoinKey maps a slash-separated storage key below baseDir. Absolute
// keys and keys containing ".." segments are rejected before joining, and the
// joined path is checked again against baseDir.
func SafeJoinKey(baseDir, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	for _, seg := range strings.Split(strings.ReplaceAll(key, `\`, "/"), "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	full := filepath.Join(absBase, filepath.FromSlash(key))
	if full == absBase || !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	return full, nil
}
