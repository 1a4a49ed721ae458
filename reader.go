// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// readerTableBufferSize is a sequential read buffer for entry table parsing.
const readerTableBufferSize = 64 * 1024

// Reader provides read-only access to a parsed MPK archive.
//
// The parsed model is immutable: repack operations produce new metadata and
// never mutate an existing Reader.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// header stores parsed fixed header metadata.
	header ArchiveHeader
	// entries stores parsed immutable entry metadata in on-disk order,
	// zero-offset records excluded.
	entries []EntryInfo
	// idIndex maps entry ID to entries position.
	idIndex map[uint32]int
	// nameIndex maps lower-cased entry name to entries position.
	nameIndex map[string]int
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens an MPK file by path and parses header and entry table.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens an MPK file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open MPK: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	r, err := NewReaderFromReaderAtWithOptions(f, fi.Size(), opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReaderFromReaderAt parses an MPK archive from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses an MPK archive from existing
// ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size}
	if err := r.parse(ra, size, opts); err != nil {
		return nil, err
	}

	return r, nil
}

// Header returns parsed fixed header metadata.
func (r *Reader) Header() ArchiveHeader {
	if r == nil {
		return ArchiveHeader{}
	}

	return r.header
}

// Version returns the resolved archive format version.
func (r *Reader) Version() FormatVersion {
	return r.Header().Version
}

// ReportedEntryCount returns the entry count as stored on disk, which may
// exceed the number of usable parsed entries.
func (r *Reader) ReportedEntryCount() uint64 {
	return r.Header().ReportedEntryCount
}

// Entries returns a copy of parsed entries in on-disk order.
func (r *Reader) Entries() []EntryInfo {
	if r == nil {
		return nil
	}

	entries := make([]EntryInfo, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// EntryByID resolves one entry by numeric ID.
func (r *Reader) EntryByID(id uint32) (EntryInfo, bool) {
	if r == nil {
		return EntryInfo{}, false
	}

	idx, ok := r.idIndex[id]
	if !ok {
		return EntryInfo{}, false
	}

	return r.entries[idx], true
}

// EntryByName resolves one entry by name. Lookup is case-insensitive.
func (r *Reader) EntryByName(name string) (EntryInfo, bool) {
	if r == nil {
		return EntryInfo{}, false
	}

	idx, ok := r.nameIndex[entryNameKey(name)]
	if !ok {
		return EntryInfo{}, false
	}

	return r.entries[idx], true
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// isClosed reports closed state under lock.
func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// parse reads and validates MPK structure from ReaderAt.
//
// Parse is a linear state machine: signature, version, entry count, then
// entry_count fixed records read sequentially through one buffered reader.
func (r *Reader) parse(ra io.ReaderAt, size int64, opts ReaderOptions) error {
	probe := make([]byte, headerProbeSize)
	if _, err := ra.ReadAt(probe, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: short header", ErrBadSignature)
		}

		return fmt.Errorf("read header: %w", err)
	}

	header, err := decodeHeader(probe)
	if err != nil {
		return err
	}
	r.header = header

	tableOffset := header.Version.entryTableOffset()
	if err := r.parseEntryTable(ra, tableOffset, size, opts); err != nil {
		return err
	}

	return nil
}

// parseEntryTable decodes entry records and builds ID and name indexes.
func (r *Reader) parseEntryTable(ra io.ReaderAt, tableOffset int64, size int64, opts ReaderOptions) error {
	count := r.header.ReportedEntryCount
	if count == 0 {
		r.entries = nil
		r.idIndex = map[uint32]int{}
		r.nameIndex = map[string]int{}
		return nil
	}

	// Guard the multiplication below: a corrupt count larger than the file
	// could ever hold must not overflow int64.
	if size < tableOffset || count > uint64(size-tableOffset)/entryRecordSize {
		return fmt.Errorf("read entry table: %w", io.ErrUnexpectedEOF)
	}

	tableSize := int64(count) * entryRecordSize

	sr := io.NewSectionReader(ra, tableOffset, tableSize)
	br := bufio.NewReaderSize(sr, readerTableBufferSize)

	capacity := clampedEntryCapacity(count)
	r.entries = make([]EntryInfo, 0, capacity)
	r.idIndex = make(map[uint32]int, capacity)
	r.nameIndex = make(map[string]int, capacity)

	record := make([]byte, entryRecordSize)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return fmt.Errorf("read entry record %d: %w", i, err)
		}

		entry, err := decodeEntryRecord(record, r.header.Version)
		if err != nil {
			return err
		}

		// Known corruption: some archives overstate the entry count and pad
		// the table with all-zero records. No real entry sits at offset 0,
		// so drop those silently.
		if entry.Offset == 0 {
			warnf(opts, "dropped zero-offset entry record %d (id %d)", i, entry.ID)
			continue
		}

		r.insertEntry(entry, opts)
	}

	return nil
}

// insertEntry appends one parsed entry, resolving duplicate IDs last-write-wins.
func (r *Reader) insertEntry(entry EntryInfo, opts ReaderOptions) {
	if idx, dup := r.idIndex[entry.ID]; dup {
		// Duplicate IDs only show up in corrupt archives. The later record's
		// values win but keep the first occurrence's table position.
		warnf(opts, "duplicate entry id %d: record %q overwrites %q", entry.ID, entry.Name, r.entries[idx].Name)
		delete(r.nameIndex, entryNameKey(r.entries[idx].Name))
		r.entries[idx] = entry
		r.nameIndex[entryNameKey(entry.Name)] = idx
		return
	}

	idx := len(r.entries)
	r.entries = append(r.entries, entry)
	r.idIndex[entry.ID] = idx
	r.nameIndex[entryNameKey(entry.Name)] = idx
}

// entryNameKey returns case-insensitive lookup key for an entry name.
func entryNameKey(name string) string {
	return strings.ToLower(name)
}

// warnf reports one tolerated parse anomaly through the options callback.
func warnf(opts ReaderOptions, format string, args ...any) {
	if opts.OnWarning == nil {
		return
	}

	opts.OnWarning(fmt.Sprintf(format, args...))
}

// clampedEntryCapacity returns initial capacity for parsed entry metadata.
func clampedEntryCapacity(count uint64) int {
	const maxCap = 8192
	if count > maxCap {
		return maxCap
	}

	return int(count)
}
