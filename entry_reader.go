// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
// Compressed payloads are inflated transparently.
func (r *Reader) openEntryByInfo(e EntryInfo) (io.ReadCloser, error) {
	if err := checkPayloadBounds(r.size, e); err != nil {
		return nil, err
	}

	sr := io.NewSectionReader(r.ra, int64(e.Offset), int64(e.StoredSize))
	if !e.Compressed {
		return nopCloser{Reader: sr}, nil
	}

	zr, err := zlib.NewReader(sr)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %v", ErrDecompression, e.Name, err)
	}

	return zr, nil
}

// OpenEntry opens named entry for reading. Name lookup is case-insensitive.
// Returned stream yields decompressed content for zlib-compressed entries.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}
	if r.isClosed() {
		return nil, ErrClosed
	}

	e, ok := r.EntryByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.openEntryByInfo(e)
}

// OpenEntryByID opens entry payload stream by numeric ID.
func (r *Reader) OpenEntryByID(id uint32) (io.ReadCloser, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}
	if r.isClosed() {
		return nil, ErrClosed
	}

	e, ok := r.EntryByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	return r.openEntryByInfo(e)
}

// ReadEntry reads full (decompressed) content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// ReadEntryByID reads full (decompressed) content of the entry with id.
func (r *Reader) ReadEntryByID(id uint32) ([]byte, error) {
	rc, err := r.OpenEntryByID(id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// WriteEntryTo streams the named entry's decompressed content into w and
// returns the number of bytes written.
func (r *Reader) WriteEntryTo(name string, w io.Writer) (int64, error) {
	if r == nil || r.ra == nil {
		return 0, ErrNilReader
	}
	if r.isClosed() {
		return 0, ErrClosed
	}

	e, ok := r.EntryByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return extractPayload(r.ra, r.size, e, w, nil)
}

// WriteEntryByIDTo streams the entry's decompressed content into w by ID.
func (r *Reader) WriteEntryByIDTo(id uint32, w io.Writer) (int64, error) {
	if r == nil || r.ra == nil {
		return 0, ErrNilReader
	}
	if r.isClosed() {
		return 0, ErrClosed
	}

	e, ok := r.EntryByID(id)
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}

	return extractPayload(r.ra, r.size, e, w, nil)
}
