// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"fmt"
	"io"
	"os"
)

// ReadHeader opens an MPK file and returns only fixed header metadata
// without parsing the entry table.
func ReadHeader(path string) (ArchiveHeader, error) {
	f, _, err := openFileWithSize(path)
	if err != nil {
		return ArchiveHeader{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeaderFromReaderAt(f)
}

// ReadHeaderFromReaderAt reads only fixed header metadata from a
// random-access source.
func ReadHeaderFromReaderAt(ra io.ReaderAt) (ArchiveHeader, error) {
	if ra == nil {
		return ArchiveHeader{}, ErrNilReader
	}

	probe := make([]byte, headerProbeSize)
	if _, err := ra.ReadAt(probe, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ArchiveHeader{}, fmt.Errorf("%w: short header", ErrBadSignature)
		}

		return ArchiveHeader{}, fmt.Errorf("read header: %w", err)
	}

	return decodeHeader(probe)
}

// ListEntries opens an MPK file and returns entry metadata without payload reads.
func ListEntries(path string) ([]EntryInfo, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions opens an MPK file and returns entry metadata using
// explicit reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]EntryInfo, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListEntriesFromReaderAtWithOptions(f, size, opts)
}

// ListEntriesFromReaderAt parses entry metadata from a random-access source.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64) ([]EntryInfo, error) {
	return ListEntriesFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// ListEntriesFromReaderAtWithOptions parses entry metadata from a
// random-access source using explicit reader options.
func ListEntriesFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) ([]EntryInfo, error) {
	r, err := NewReaderFromReaderAtWithOptions(ra, size, opts)
	if err != nil {
		return nil, err
	}

	return r.Entries(), nil
}

// openFileWithSize opens a file and stats its size in one step.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open MPK: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
