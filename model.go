// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import "io"

// Internal binary layout and format limits.
const (
	// entryRecordSize is the fixed on-disk size of one entry table record.
	entryRecordSize = 256
	// nameFieldSize is the fixed NUL-padded entry name field inside a record.
	nameFieldSize = 224
	// alignBlockSize is the payload alignment block between entry data regions.
	alignBlockSize = 2048
	// headerProbeSize covers the fixed header fields of both format versions.
	headerProbeSize = 16
)

// mpkSignature is the 4-byte archive magic.
var mpkSignature = [4]byte{'M', 'P', 'K', 0}

// Default repack tuning values.
const (
	DefaultWriteBuffer = 4 * 1024 * 1024
)

// FormatVersion identifies the on-disk header and entry record layout.
// It is resolved once at parse time and carries the version-specific
// field widths for both decode and encode paths.
type FormatVersion uint16

// Supported MPK format versions.
const (
	// FormatV1 is the legacy layout: u32 entry count and u32 entry fields.
	FormatV1 FormatVersion = 1
	// FormatV2 stores u64 entry count and fields plus a compression indicator.
	FormatV2 FormatVersion = 2
)

// valid reports whether the version is one of the supported layouts.
func (v FormatVersion) valid() bool {
	return v == FormatV1 || v == FormatV2
}

// preambleSize returns the number of meaningful header bytes before padding.
func (v FormatVersion) preambleSize() int64 {
	if v == FormatV1 {
		return 12 // magic + versions + u32 count
	}

	return 16 // magic + versions + u64 count
}

// entryTableOffset returns the absolute offset of the first entry record.
func (v FormatVersion) entryTableOffset() int64 {
	if v == FormatV1 {
		return 0x40
	}

	return 0x44
}

// String returns version as human-readable text.
func (v FormatVersion) String() string {
	switch v {
	case FormatV1:
		return "MPK v1"
	case FormatV2:
		return "MPK v2"
	default:
		return "MPK (unknown version)"
	}
}

// ArchiveHeader describes parsed fixed header metadata.
type ArchiveHeader struct {
	// Version is the resolved on-disk format layout.
	Version FormatVersion `json:"version" yaml:"version"`
	// MinorVersion is the stored minor version field.
	MinorVersion uint16 `json:"minor_version" yaml:"minor_version"`
	// ReportedEntryCount is the entry count as stored on disk. Known corrupt
	// archives overstate this; the parsed entry list may be shorter.
	ReportedEntryCount uint64 `json:"reported_entry_count" yaml:"reported_entry_count"`
}

// EntryInfo describes a single parsed MPK entry.
type EntryInfo struct {
	// Name is the entry name decoded from the fixed 224-byte name field.
	Name string `json:"name" yaml:"name"`
	// ID is the stable numeric entry identifier.
	ID uint32 `json:"id" yaml:"id"`
	// Offset is absolute byte offset of entry payload.
	Offset uint64 `json:"offset" yaml:"offset"`
	// StoredSize is payload size occupying archive bytes.
	StoredSize uint64 `json:"stored_size" yaml:"stored_size"`
	// OriginalSize is uncompressed payload size.
	OriginalSize uint64 `json:"original_size" yaml:"original_size"`
	// Indicator is the raw v2 compression indicator field; zero on v1.
	Indicator uint32 `json:"indicator,omitempty" yaml:"indicator,omitempty"`
	// Compressed reports whether payload is a zlib stream. Derivation is
	// version-specific: v1 compares stored and original sizes, v2 trusts
	// the indicator field.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// Replacement describes one source stream substituted for a named entry
// during repack.
type Replacement struct {
	// Open returns raw (uncompressed) source stream for the entry content.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Name is the archive entry name to replace.
	Name string `json:"name" yaml:"name"`
	// SizeHint is expected content size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// RepackEntryProgress contains one completed entry write event from repack flow.
type RepackEntryProgress struct {
	// Name is the entry name written to the new archive.
	Name string `json:"name" yaml:"name"`
	// Offset is payload offset in the resulting archive.
	Offset uint64 `json:"offset" yaml:"offset"`
	// StoredSize is payload size written to the resulting archive.
	StoredSize uint64 `json:"stored_size" yaml:"stored_size"`
	// Replaced reports whether entry content came from a replacement source.
	Replaced bool `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	// Compressed reports whether payload was written as a zlib stream.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// RepackResult contains repack output metadata and statistics.
type RepackResult struct {
	// Entries is the new entry metadata in archive order, with recomputed
	// offsets and sizes. IDs, names, and version match the source archive.
	Entries []EntryInfo `json:"entries" yaml:"entries"`
	// ReplacedEntries is number of entries written from replacement sources.
	ReplacedEntries int `json:"replaced_entries" yaml:"replaced_entries"`
	// DataSize is total payload bytes written, padding excluded.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// PaddingBytes is total alignment padding bytes written between entries.
	PaddingBytes int64 `json:"padding_bytes,omitempty" yaml:"padding_bytes,omitempty"`
}

// ReaderOptions configures archive parse behavior.
type ReaderOptions struct {
	// OnWarning is called for tolerated parse anomalies: dropped zero-offset
	// records and duplicate entry IDs. Nil disables reporting.
	OnWarning func(warning string) `json:"-" yaml:"-"`
}

// RepackOptions configures repack behavior.
type RepackOptions struct {
	// OnEntryDone is called after one entry payload is fully written.
	OnEntryDone func(entry RepackEntryProgress) `json:"-" yaml:"-"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// BackupKeep controls whether RepackFile keeps the `<archive>.bak`
	// backup after successful commit. 0 removes it, 1 keeps it.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Entries limits extraction to selected metadata list; nil means all parsed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// applyDefaults fills zero-valued repack options with defaults.
func (opts *RepackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}
