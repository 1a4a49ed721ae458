// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Fixed little-endian record codec for both MPK layouts.
//
// v1 entry record (256 bytes):
//
//	id u32 | offset u32 | stored u32 | original u32 | 16 reserved | name 224
//
// v2 entry record (256 bytes):
//
//	indicator u32 | id u32 | offset u64 | stored u64 | original u64 | name 224

// decodeHeader parses the fixed archive header from the first bytes of the file.
func decodeHeader(buf []byte) (ArchiveHeader, error) {
	var h ArchiveHeader

	if len(buf) < headerProbeSize {
		return h, fmt.Errorf("%w: short header", ErrBadSignature)
	}

	if !bytes.Equal(buf[0:4], mpkSignature[:]) {
		return h, fmt.Errorf("%w: %q", ErrBadSignature, buf[0:4])
	}

	h.MinorVersion = binary.LittleEndian.Uint16(buf[4:6])
	h.Version = FormatVersion(binary.LittleEndian.Uint16(buf[6:8]))
	if !h.Version.valid() {
		return h, fmt.Errorf("%w: major %d", ErrUnsupportedVersion, uint16(h.Version))
	}

	if h.Version == FormatV1 {
		h.ReportedEntryCount = uint64(binary.LittleEndian.Uint32(buf[8:12]))
	} else {
		h.ReportedEntryCount = binary.LittleEndian.Uint64(buf[8:16])
	}

	return h, nil
}

// writeArchivePreamble writes signature, version fields, and entry count.
// Returns the number of bytes written (version.preambleSize()).
func writeArchivePreamble(w io.Writer, header ArchiveHeader) (int64, error) {
	buf := make([]byte, header.Version.preambleSize())
	copy(buf[0:4], mpkSignature[:])
	binary.LittleEndian.PutUint16(buf[4:6], header.MinorVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(header.Version))

	if header.Version == FormatV1 {
		if header.ReportedEntryCount > math.MaxUint32 {
			return 0, fmt.Errorf("%w: entry count %d", ErrValueTooLarge, header.ReportedEntryCount)
		}

		binary.LittleEndian.PutUint32(buf[8:12], uint32(header.ReportedEntryCount))
	} else {
		binary.LittleEndian.PutUint64(buf[8:16], header.ReportedEntryCount)
	}

	if _, err := w.Write(buf); err != nil {
		return 0, fmt.Errorf("write archive preamble: %w", err)
	}

	return int64(len(buf)), nil
}

// decodeEntryRecord parses one 256-byte entry table record.
func decodeEntryRecord(buf []byte, version FormatVersion) (EntryInfo, error) {
	var e EntryInfo

	if len(buf) < entryRecordSize {
		return e, fmt.Errorf("entry record: %w", io.ErrUnexpectedEOF)
	}

	if version == FormatV1 {
		e.ID = binary.LittleEndian.Uint32(buf[0:4])
		e.Offset = uint64(binary.LittleEndian.Uint32(buf[4:8]))
		e.StoredSize = uint64(binary.LittleEndian.Uint32(buf[8:12]))
		e.OriginalSize = uint64(binary.LittleEndian.Uint32(buf[12:16]))
		// v1 has no indicator field; size mismatch is the only compression signal.
		e.Compressed = e.StoredSize != e.OriginalSize
	} else {
		e.Indicator = binary.LittleEndian.Uint32(buf[0:4])
		e.ID = binary.LittleEndian.Uint32(buf[4:8])
		e.Offset = binary.LittleEndian.Uint64(buf[8:16])
		e.StoredSize = binary.LittleEndian.Uint64(buf[16:24])
		e.OriginalSize = binary.LittleEndian.Uint64(buf[24:32])
		e.Compressed = e.Indicator != 0
	}

	name, err := decodeEntryName(buf[entryRecordSize-nameFieldSize : entryRecordSize])
	if err != nil {
		return e, fmt.Errorf("entry id %d: %w", e.ID, err)
	}

	e.Name = name
	return e, nil
}

// encodeEntryRecord writes one 256-byte entry table record into buf.
func encodeEntryRecord(buf []byte, e EntryInfo, version FormatVersion) error {
	if len(buf) < entryRecordSize {
		return io.ErrShortBuffer
	}

	clear(buf[:entryRecordSize])

	if version == FormatV1 {
		if e.Offset > math.MaxUint32 || e.StoredSize > math.MaxUint32 || e.OriginalSize > math.MaxUint32 {
			return fmt.Errorf("%w: entry %s does not fit v1 u32 fields", ErrValueTooLarge, e.Name)
		}

		binary.LittleEndian.PutUint32(buf[0:4], e.ID)
		binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Offset))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(e.StoredSize))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(e.OriginalSize))
	} else {
		binary.LittleEndian.PutUint32(buf[0:4], e.Indicator)
		binary.LittleEndian.PutUint32(buf[4:8], e.ID)
		binary.LittleEndian.PutUint64(buf[8:16], e.Offset)
		binary.LittleEndian.PutUint64(buf[16:24], e.StoredSize)
		binary.LittleEndian.PutUint64(buf[24:32], e.OriginalSize)
	}

	if err := encodeEntryName(buf[entryRecordSize-nameFieldSize:entryRecordSize], e.Name); err != nil {
		return fmt.Errorf("entry id %d: %w", e.ID, err)
	}

	return nil
}

// decodeEntryName decodes the fixed NUL-padded name field as UTF-8.
func decodeEntryName(field []byte) (string, error) {
	idx := bytes.IndexByte(field, 0)
	if idx < 0 {
		return "", fmt.Errorf("%w: no NUL terminator within %d bytes", ErrMalformedName, len(field))
	}

	raw := field[:idx]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrMalformedName)
	}

	return string(raw), nil
}

// encodeEntryName copies name into the fixed field and zero-pads the remainder.
func encodeEntryName(field []byte, name string) error {
	if len(name) > len(field) {
		return fmt.Errorf("%w: %d bytes, max %d", ErrNameTooLong, len(name), len(field))
	}

	n := copy(field, name)
	clear(field[n:])

	return nil
}

// alignmentPadding returns the number of zero bytes needed to round pos up
// to the next payload alignment block. Already aligned positions need none.
func alignmentPadding(pos int64) int64 {
	rem := pos % alignBlockSize
	if rem == 0 {
		return 0
	}

	return alignBlockSize - rem
}

// writeZeroPadding writes n zero bytes to w.
func writeZeroPadding(w io.Writer, n int64) error {
	if n <= 0 {
		return nil
	}

	var zeros [4096]byte
	for n > 0 {
		chunk := int64(len(zeros))
		if chunk > n {
			chunk = n
		}

		if _, err := w.Write(zeros[:chunk]); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}

		n -= chunk
	}

	return nil
}
