// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Repack writes a new archive to out, substituting the content of each entry
// whose name matches a replacement. Non-replaced entries are copied
// byte-for-byte from the original source; replaced entries are re-compressed
// when the original entry was compressed. Offsets and sizes are recomputed
// and the entry table is rewritten in a second pass, so out must be seekable
// and positioned at the start of the new file.
//
// The reader itself is not mutated; the returned result carries the new
// entry metadata. Writing to a temporary location and swapping it over the
// original file is the caller's job (RepackFile does exactly that).
func (r *Reader) Repack(ctx context.Context, out io.WriteSeeker, replacements []Replacement, opts RepackOptions) (*RepackResult, error) {
	if r == nil || r.ra == nil {
		return nil, ErrNilReader
	}
	if out == nil {
		return nil, ErrNilWriter
	}
	if r.isClosed() {
		return nil, ErrClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	// All replacement targets must resolve before any bytes are written,
	// so a bad invocation never leaves a partial rewrite behind.
	replMap, err := r.resolveReplacements(replacements)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(out, opts.WriterBufferSize)

	pos, err := writeArchivePreamble(w, r.header)
	if err != nil {
		return nil, err
	}

	dataStart := r.header.Version.entryTableOffset()
	if len(r.entries) > 0 {
		dataStart = int64(r.entries[0].Offset)
	}
	if dataStart < pos {
		return nil, fmt.Errorf("first entry data offset %#x overlaps archive header", dataStart)
	}

	if err := writeZeroPadding(w, dataStart-pos); err != nil {
		return nil, err
	}
	pos = dataStart

	newEntries := make([]EntryInfo, 0, len(r.entries))
	copyBuf := make([]byte, contentCopyBufferSize)
	res := &RepackResult{}

	for i := range r.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := r.entries[i]
		rep, replaced := replMap[entryNameKey(entry.Name)]

		newEntry := entry
		newEntry.Offset = uint64(pos)

		var written int64
		if replaced {
			written, err = r.writeReplacementPayload(w, rep, &newEntry, copyBuf)
			res.ReplacedEntries++
		} else {
			written, err = r.copyOriginalPayload(w, entry, copyBuf)
		}
		if err != nil {
			return nil, err
		}

		pos += written
		res.DataSize += written

		// The final entry is exempt from trailing alignment padding; that is
		// a property of the original format producer, preserved exactly.
		if i != len(r.entries)-1 {
			pad := alignmentPadding(pos)
			if err := writeZeroPadding(w, pad); err != nil {
				return nil, err
			}

			pos += pad
			res.PaddingBytes += pad
		}

		newEntries = append(newEntries, newEntry)

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(RepackEntryProgress{
				Name:       newEntry.Name,
				Offset:     newEntry.Offset,
				StoredSize: newEntry.StoredSize,
				Replaced:   replaced,
				Compressed: newEntry.Compressed,
			})
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush payloads: %w", err)
	}

	if err := writeEntryTable(out, newEntries, r.header.Version); err != nil {
		return nil, err
	}

	res.Entries = newEntries
	return res, nil
}

// resolveReplacements validates replacement targets against the name index.
func (r *Reader) resolveReplacements(replacements []Replacement) (map[string]Replacement, error) {
	replMap := make(map[string]Replacement, len(replacements))
	for i := range replacements {
		rep := replacements[i]
		if strings.TrimSpace(rep.Name) == "" {
			return nil, fmt.Errorf("%w: empty replacement name", ErrInvalidEntryName)
		}
		if rep.Open == nil {
			return nil, fmt.Errorf("%w: replacement %s: Open is nil", ErrInvalidEntryName, rep.Name)
		}

		key := entryNameKey(rep.Name)
		if _, ok := r.nameIndex[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReplacementTarget, rep.Name)
		}
		if _, dup := replMap[key]; dup {
			return nil, fmt.Errorf("%w: duplicate replacement %s", ErrInvalidEntryName, rep.Name)
		}

		replMap[key] = rep
	}

	return replMap, nil
}

// writeReplacementPayload streams one replacement source into the new
// archive and updates the entry's sizes in place.
func (r *Reader) writeReplacementPayload(dst io.Writer, rep Replacement, entry *EntryInfo, copyBuf []byte) (int64, error) {
	rc, err := rep.Open()
	if err != nil {
		return 0, fmt.Errorf("open replacement %s: %w", rep.Name, err)
	}

	written, read, writeErr := repackWritePayload(dst, rc, entry.Compressed, copyBuf)
	closeErr := rc.Close()
	if writeErr != nil {
		return written, fmt.Errorf("write replacement %s: %w", rep.Name, writeErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("close replacement %s: %w", rep.Name, closeErr)
	}

	entry.StoredSize = uint64(written)
	entry.OriginalSize = uint64(read)

	return written, nil
}

// copyOriginalPayload copies one unmodified entry's stored bytes from the
// original archive into the new one.
func (r *Reader) copyOriginalPayload(dst io.Writer, entry EntryInfo, copyBuf []byte) (int64, error) {
	if err := checkPayloadBounds(r.size, entry); err != nil {
		return 0, err
	}

	sr := io.NewSectionReader(r.ra, int64(entry.Offset), int64(entry.StoredSize))
	copied, err := copyPayload(dst, sr, copyBuf)
	if err != nil {
		return copied, fmt.Errorf("copy entry %s: %w", entry.Name, err)
	}
	if copied != int64(entry.StoredSize) {
		return copied, fmt.Errorf("%w: entry %s (%d/%d)", ErrTruncatedRead, entry.Name, copied, entry.StoredSize)
	}

	return copied, nil
}

// writeEntryTable seeks back to the entry table region and writes all new
// entry records in archive order.
func writeEntryTable(out io.WriteSeeker, entries []EntryInfo, version FormatVersion) error {
	if _, err := out.Seek(version.entryTableOffset(), io.SeekStart); err != nil {
		return fmt.Errorf("seek to entry table: %w", err)
	}

	var record [entryRecordSize]byte
	for i := range entries {
		if err := encodeEntryRecord(record[:], entries[i], version); err != nil {
			return err
		}

		if _, err := out.Write(record[:]); err != nil {
			return fmt.Errorf("write entry record %d: %w", i, err)
		}
	}

	return nil
}

// FileReplacement builds a Replacement from a local file path. The file's
// base name selects the archive entry to replace.
func FileReplacement(path string) (Replacement, error) {
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		return Replacement{}, fmt.Errorf("%w: %q", ErrInvalidEntryName, path)
	}

	var sizeHint int64
	if fi, err := os.Stat(path); err == nil {
		sizeHint = fi.Size()
	}

	return Replacement{
		Name:     name,
		SizeHint: sizeHint,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// RepackFile rewrites the archive at path, replacing entries named by the
// base names of replacementPaths. The original archive is moved to
// `<path>.bak` first and restored on failure; BackupKeep controls whether
// the backup survives a successful rewrite.
func RepackFile(ctx context.Context, path string, replacementPaths []string, opts RepackOptions) (*RepackResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	replacements := make([]Replacement, 0, len(replacementPaths))
	for _, p := range replacementPaths {
		rep, err := FileReplacement(p)
		if err != nil {
			return nil, err
		}

		replacements = append(replacements, rep)
	}

	backupPath := path + ".bak"
	if err := os.Rename(path, backupPath); err != nil {
		return nil, fmt.Errorf("move archive to backup: %w", err)
	}

	res, err := repackFromBackup(ctx, path, backupPath, replacements, opts)
	if err != nil {
		if rollbackErr := rollbackFromBackup(path, backupPath); rollbackErr != nil {
			return nil, fmt.Errorf("%v (rollback failed: %v)", err, rollbackErr)
		}

		return nil, err
	}

	if opts.BackupKeep == 0 {
		if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove backup: %w", err)
		}
	}

	return res, nil
}

// repackFromBackup writes the rewritten archive from the backup source.
func repackFromBackup(ctx context.Context, path, backupPath string, replacements []Replacement, opts RepackOptions) (*RepackResult, error) {
	src, err := os.Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	srcInfo, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	reader, err := NewReaderFromReaderAt(src, srcInfo.Size())
	if err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	dst, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create destination archive: %w", err)
	}

	res, repackErr := reader.Repack(ctx, dst, replacements, opts)
	if repackErr != nil {
		_ = dst.Close()
		return nil, repackErr
	}

	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return nil, fmt.Errorf("sync destination archive: %w", err)
	}

	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("close destination archive: %w", err)
	}

	return res, nil
}

// rollbackFromBackup restores the original archive after a failed rewrite.
func rollbackFromBackup(path, backupPath string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Rename(backupPath, path)
}
