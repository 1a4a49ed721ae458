// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/mpk

/*
Package mpk provides read, list, extract, and repack operations for MPK
game-engine asset archives. Both on-disk layouts are supported: the legacy
v1 format (u32 fields) and v2 (u64 fields plus a per-entry compression
indicator). Reading and extracting stream payloads without loading the
whole archive into memory; repacking rewrites the full archive with
recomputed offsets while leaving non-replaced entries byte-identical.

Parse quirks handled automatically:
  - all-zero entry records padding an overstated entry count are dropped
    (no real entry sits at offset 0);
  - duplicate entry IDs resolve last-write-wins and are surfaced through
    ReaderOptions.OnWarning;
  - the compressed flag is derived per version: v1 compares stored and
    original sizes, v2 trusts the indicator field.

# Reading

Open an archive and list or read entries:

	r, err := mpk.Open("script.mpk")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, e := range r.Entries() {
	    data, _ := r.ReadEntry(e.Name)
	    // use data
	}

For metadata-only scans, use fast helpers without creating a full reader:

	header, err := mpk.ReadHeader("script.mpk")
	if err != nil {
	    return err
	}
	entries, err := mpk.ListEntries("script.mpk")
	if err != nil {
	    return err
	}
	_, _ = header, entries

Entries resolve by numeric ID or case-insensitive name; mixed ID/glob
selection over the parsed list is available for CLI-style workflows:

	selected, err := r.SelectEntries([]string{"12", "*.scx"}, mpk.SelectOptions{})
	if err != nil {
	    return err
	}
	_ = selected

# Extracting

Extract all entries to a directory (parallel workers):

	if err := r.Extract(ctx, "out/", mpk.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

Or stream one entry into any writer:

	n, err := r.WriteEntryTo("script.scx", dst)

# Repacking

Replace entry content by name and write a new archive to a seekable sink.
Entries that were compressed in the source are re-compressed; everything
else is copied byte-for-byte and all offsets are recomputed with the
format's 2048-byte alignment padding:

	rep, err := mpk.FileReplacement("patched/script.scx")
	if err != nil {
	    return err
	}
	res, err := r.Repack(ctx, outFile, []mpk.Replacement{rep}, mpk.RepackOptions{})
	if err != nil {
	    return err
	}
	_ = res.Entries // new metadata with updated offsets and sizes

To rewrite an archive file in place with backup and rollback:

	res, err := mpk.RepackFile(ctx, "script.mpk", []string{"patched/script.scx"}, mpk.RepackOptions{
	    BackupKeep: 1,
	})
	_ = res
*/
package mpk
