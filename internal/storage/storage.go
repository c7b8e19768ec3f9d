// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage persists uploaded images under opaque, randomly generated
// keys. Client-supplied file names never reach the storage layer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the common prefix for every upload key.
const KeyPrefix = "uploads/"

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store saves and retrieves upload bytes.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteOlderThan removes uploads last modified before cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	// Name identifies the backend in logs and health output.
	Name() string
}

// NewKey returns a fresh key of the form uploads/YYYY/MM/DD/<uuid><ext>.
func NewKey(now time.Time, ext string) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/%s%s", KeyPrefix, now.Year(), int(now.Month()), now.Day(), uuid.New(), ext)
}
