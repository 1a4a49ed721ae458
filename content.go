// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// contentCopyBufferSize is the streaming buffer used by payload copy.
const contentCopyBufferSize = 64 * 1024

// countingWriter tracks bytes written through to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the wrapped writer and accounts written bytes.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// extractPayload streams one entry payload from the archive source into dst,
// inflating compressed entries. Returns bytes written to dst.
func extractPayload(ra io.ReaderAt, size int64, e EntryInfo, dst io.Writer, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}

	if err := checkPayloadBounds(size, e); err != nil {
		return 0, err
	}

	sr := io.NewSectionReader(ra, int64(e.Offset), int64(e.StoredSize))
	if !e.Compressed {
		written, err := copyPayload(dst, sr, buf)
		if err != nil {
			return written, fmt.Errorf("copy entry %s: %w", e.Name, err)
		}
		if written != int64(e.StoredSize) {
			return written, fmt.Errorf("%w: entry %s (%d/%d)", ErrTruncatedRead, e.Name, written, e.StoredSize)
		}

		return written, nil
	}

	zr, err := zlib.NewReader(sr)
	if err != nil {
		return 0, fmt.Errorf("%w: entry %s: %v", ErrDecompression, e.Name, err)
	}
	defer func() { _ = zr.Close() }()

	written, err := copyPayload(dst, zr, buf)
	if err != nil {
		return written, fmt.Errorf("%w: entry %s: %v", ErrDecompression, e.Name, err)
	}

	return written, nil
}

// repackWritePayload copies all bytes from src into dst, deflating when
// compressed. Returns bytes written to dst (the new stored size) and bytes
// read from src (the new original size).
func repackWritePayload(dst io.Writer, src io.Reader, compressed bool, buf []byte) (written int64, read int64, err error) {
	if dst == nil {
		return 0, 0, ErrNilWriter
	}
	if src == nil {
		return 0, 0, ErrNilReader
	}

	if !compressed {
		n, err := copyPayload(dst, src, buf)
		return n, n, err
	}

	cw := &countingWriter{w: dst}
	zw := zlib.NewWriter(cw)

	read, err = copyPayload(zw, src, buf)
	if err != nil {
		_ = zw.Close()
		return cw.n, read, err
	}

	if err := zw.Close(); err != nil {
		return cw.n, read, fmt.Errorf("finish zlib stream: %w", err)
	}

	return cw.n, read, nil
}

// copyPayload streams src to dst until source exhaustion using buf.
func copyPayload(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, contentCopyBufferSize)
	}

	var written int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			written += int64(writeN)

			if writeErr != nil {
				return written, writeErr
			}

			if writeN != readN {
				return written, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return written, nil
		}

		return written, readErr
	}
}

// checkPayloadBounds validates that the stored payload region fits the source.
func checkPayloadBounds(size int64, e EntryInfo) error {
	end := e.Offset + e.StoredSize
	if end < e.Offset || size >= 0 && end > uint64(size) {
		return fmt.Errorf("%w: entry %s region [%#x..%#x) past end of archive", ErrTruncatedRead, e.Name, e.Offset, end)
	}

	return nil
}
