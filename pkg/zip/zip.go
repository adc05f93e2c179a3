package zip

import (
	"archive/zip"
	"bytes"
)

// Entry is one file inside an export archive.
type Entry struct {
	Filename string
	Data     []byte
}

// ArchiveEntries packs the entries into a single zip archive in memory.
func ArchiveEntries(entries []Entry) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
