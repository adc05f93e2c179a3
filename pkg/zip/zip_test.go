package zip

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveEntriesRoundTrip(t *testing.T) {
	entries := []Entry{
		{Filename: "reflections/2025-W11.md", Data: []byte("# Week 11\n\nshipped the exporter")},
		{Filename: "snippets.json", Data: []byte(`[{"content":"hello"}]`)},
	}

	data := ArchiveEntries(entries)
	if len(data) == 0 {
		t.Fatal("archive is empty")
	}

	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != len(entries) {
		t.Fatalf("archive holds %d files, want %d", len(zr.File), len(entries))
	}

	for i, f := range zr.File {
		if f.Name != entries[i].Filename {
			t.Fatalf("file %d name = %q, want %q", i, f.Name, entries[i].Filename)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(got, entries[i].Data) {
			t.Fatalf("%s content mismatch", f.Name)
		}
	}
}

func TestArchiveEntriesEmpty(t *testing.T) {
	data := ArchiveEntries(nil)
	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("archive holds %d files, want 0", len(zr.File))
	}
}
