// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

package mpk

import "errors"

// Sentinel errors for MPK operations. Use errors.Is in callers.
var (
	// ErrBadSignature means the file does not start with the "MPK\0" magic.
	ErrBadSignature = errors.New("invalid MPK file: bad signature")
	// ErrUnsupportedVersion means the archive major version is not 1 or 2.
	ErrUnsupportedVersion = errors.New("unsupported MPK archive version")
	// ErrMalformedName means an entry name field is not NUL-terminated valid UTF-8.
	ErrMalformedName = errors.New("malformed entry name field")
	// ErrNameTooLong means an entry name does not fit the 224-byte name field.
	ErrNameTooLong = errors.New("entry name exceeds name field size")
	// ErrValueTooLarge means an offset or size does not fit the target format width.
	ErrValueTooLarge = errors.New("value too large for format field width")
	// ErrTruncatedRead means entry payload region extends past the end of the archive.
	ErrTruncatedRead = errors.New("truncated entry payload read")
	// ErrDecompression means a compressed entry payload is not a valid zlib stream.
	ErrDecompression = errors.New("invalid zlib stream in entry payload")
	// ErrUnknownReplacementTarget means a replacement does not match any entry name.
	ErrUnknownReplacementTarget = errors.New("replacement does not match any archive entry")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntryName means an entry name is empty or unusable for the operation.
	ErrInvalidEntryName = errors.New("invalid entry name")
	// ErrInvalidExtractPath means archive entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("extract path escapes destination root")
	// ErrInvalidSelectPattern means one or more entry selection patterns are invalid.
	ErrInvalidSelectPattern = errors.New("invalid entry selection pattern")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
)
