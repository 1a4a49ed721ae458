package mpk

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestExtract_AllEntries(t *testing.T) {
	t.Parallel()

	compressible := bytes.Repeat([]byte("script line\n"), 300)
	data := buildTestArchive(t, FormatV2, []fixtureEntry{
		{id: 0, name: "readme.txt", content: []byte("plain content")},
		{id: 1, name: "script.scx", content: compressible, compress: true},
		{id: 2, name: "sub/inner.bin", content: []byte{0, 1, 2, 3}},
	})

	r := openTestArchive(t, data)
	dst := t.TempDir()

	var mu sync.Mutex
	var done int
	err := r.Extract(context.Background(), dst, ExtractOptions{
		OnEntryDone: func(EntryInfo, int64, string) {
			mu.Lock()
			done++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if done != 3 {
		t.Fatalf("done callbacks=%d, want 3", done)
	}

	checks := map[string][]byte{
		"readme.txt":                      []byte("plain content"),
		"script.scx":                      compressible,
		filepath.Join("sub", "inner.bin"): {0, 1, 2, 3},
	}
	for rel, want := range checks {
		got, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("read extracted %s: %v", rel, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("extracted %s content mismatch", rel)
		}
	}
}

func TestExtract_SelectedSubset(t *testing.T) {
	t.Parallel()

	data := buildTestArchive(t, FormatV1, []fixtureEntry{
		{id: 0, name: "keep.txt", content: []byte("keep")},
		{id: 1, name: "skip.txt", content: []byte("skip")},
	})

	r := openTestArchive(t, data)
	dst := t.TempDir()

	e, ok := r.EntryByName("keep.txt")
	if !ok {
		t.Fatal("entry not found")
	}

	if err := r.Extract(context.Background(), dst, ExtractOptions{
		Entries:    []EntryInfo{e},
		MaxWorkers: 1,
	}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "keep.txt")); err != nil {
		t.Fatalf("selected entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "skip.txt")); !os.IsNotExist(err) {
		t.Fatalf("unselected entry must not be written, stat err=%v", err)
	}
}

func TestExtract_RejectsTraversalNames(t *testing.T) {
	t.Parallel()

	data := buildTestArchive(t, FormatV1, []fixtureEntry{
		{id: 0, name: "../evil.txt", content: []byte("nope")},
	})

	r := openTestArchive(t, data)
	parent := t.TempDir()
	dst := filepath.Join(parent, "out")

	err := r.Extract(context.Background(), dst, ExtractOptions{})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("traversal name escaped output dir, stat err=%v", statErr)
	}
}

func TestExtract_RejectsAbsoluteNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"/etc/evil", `\evil`, `C:/evil`} {
		data := buildTestArchive(t, FormatV1, []fixtureEntry{
			{id: 0, name: name, content: []byte("nope")},
		})

		r := openTestArchive(t, data)
		err := r.Extract(context.Background(), t.TempDir(), ExtractOptions{})
		if !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("name %q: expected ErrInvalidExtractPath, got %v", name, err)
		}
	}
}

func TestNormalizeExtractEntryName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a.txt", want: "a.txt"},
		{in: "sub/inner.bin", want: "sub/inner.bin"},
		{in: `sub\inner.bin`, want: "sub/inner.bin"},
		{in: "./a.txt", want: "a.txt"},
		{in: "a//b.txt", want: "a/b.txt"},
		{in: "", wantErr: true},
		{in: "..", wantErr: true},
		{in: "../a.txt", wantErr: true},
		{in: "a/../../b.txt", wantErr: true},
		{in: "/abs.txt", wantErr: true},
		{in: "C:/abs.txt", wantErr: true},
		{in: "a\x00b", wantErr: true},
	}

	for _, tc := range cases {
		got, err := normalizeExtractEntryName(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidExtractPath) {
				t.Errorf("normalize(%q): expected ErrInvalidExtractPath, got %v", tc.in, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("normalize(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("normalize(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	data := buildTestArchive(t, FormatV1, []fixtureEntry{
		{id: 0, name: "a.txt", content: []byte("aaaa")},
	})

	r := openTestArchive(t, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Extract(ctx, t.TempDir(), ExtractOptions{MaxWorkers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
