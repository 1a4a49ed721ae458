package mpk

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// fixtureEntry describes one entry for manual archive construction.
type fixtureEntry struct {
	name      string
	content   []byte
	id        uint32
	indicator uint32
	compress  bool
	// zero emits an all-zero record with no payload, reproducing the
	// known lying-entry-count corruption pattern.
	zero bool
}

// zlibDeflate compresses data with default level for fixtures.
func zlibDeflate(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("deflate fixture payload: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close fixture deflate: %v", err)
	}

	return buf.Bytes()
}

// alignUpFixture rounds n up to the next payload alignment block.
func alignUpFixture(n int) int {
	if n%alignBlockSize == 0 {
		return n
	}

	return (n/alignBlockSize + 1) * alignBlockSize
}

// buildTestArchive constructs a complete archive image byte-for-byte the way
// the original format producer lays it out: header, fixed entry table,
// payload regions 2048-aligned except after the last entry.
func buildTestArchive(t *testing.T, version FormatVersion, entries []fixtureEntry) []byte {
	t.Helper()

	tableOff := int(version.entryTableOffset())
	dataStart := alignUpFixture(tableOff + entryRecordSize*len(entries))

	type placedEntry struct {
		data []byte
		off  int
	}

	placed := make(map[int]placedEntry, len(entries))
	lastPayload := -1
	for i := range entries {
		if !entries[i].zero {
			lastPayload = i
		}
	}

	off := dataStart
	fileEnd := dataStart
	for i, fe := range entries {
		if fe.zero {
			continue
		}

		data := fe.content
		if fe.compress {
			data = zlibDeflate(t, fe.content)
		}

		placed[i] = placedEntry{data: data, off: off}
		fileEnd = off + len(data)
		if i != lastPayload {
			off = alignUpFixture(fileEnd)
		}
	}

	buf := make([]byte, fileEnd)
	copy(buf[0:4], "MPK\x00")
	binary.LittleEndian.PutUint16(buf[6:8], uint16(version))
	if version == FormatV1 {
		binary.LittleEndian.PutUint32(buf[8:12], uint32(len(entries)))
	} else {
		binary.LittleEndian.PutUint64(buf[8:16], uint64(len(entries)))
	}

	for i, fe := range entries {
		rec := buf[tableOff+i*entryRecordSize : tableOff+(i+1)*entryRecordSize]
		if fe.zero {
			continue
		}

		p := placed[i]
		if version == FormatV1 {
			binary.LittleEndian.PutUint32(rec[0:4], fe.id)
			binary.LittleEndian.PutUint32(rec[4:8], uint32(p.off))
			binary.LittleEndian.PutUint32(rec[8:12], uint32(len(p.data)))
			binary.LittleEndian.PutUint32(rec[12:16], uint32(len(fe.content)))
		} else {
			indicator := fe.indicator
			if indicator == 0 && fe.compress {
				indicator = 1
			}

			binary.LittleEndian.PutUint32(rec[0:4], indicator)
			binary.LittleEndian.PutUint32(rec[4:8], fe.id)
			binary.LittleEndian.PutUint64(rec[8:16], uint64(p.off))
			binary.LittleEndian.PutUint64(rec[16:24], uint64(len(p.data)))
			binary.LittleEndian.PutUint64(rec[24:32], uint64(len(fe.content)))
		}

		copy(rec[entryRecordSize-nameFieldSize:], fe.name)
		copy(buf[p.off:], p.data)
	}

	return buf
}

// writeTestArchive writes an archive image to a temp file and returns its path.
func writeTestArchive(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.mpk")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture archive: %v", err)
	}

	return path
}

// openTestArchive parses an in-memory archive image.
func openTestArchive(t *testing.T, data []byte) *Reader {
	t.Helper()

	r, err := NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse fixture archive: %v", err)
	}

	return r
}
