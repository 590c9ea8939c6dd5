package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Artifact kinds.
const (
	KindPart   = "part"
	KindSchema = "schema"
	KindReport = "report"
)

// ManifestName is the file the manifest is stored under.
const ManifestName = "manifest.json"

// Entry describes one stored file.
type Entry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Bytes int    `json:"bytes"`
	// XXH3 is the 64-bit xxh3 of the content, as 16 hex digits.
	XXH3 string `json:"xxh3"`
	// Part and Of are set for part files.
	Part int `json:"part,omitempty"`
	Of   int `json:"of,omitempty"`
}

// Manifest lists every artifact of a run, parts in apply order.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Generated time.Time `json:"generated"`
	Dialect   string    `json:"dialect"`
	Source    string    `json:"source"`
	Files     []Entry   `json:"files"`
}

// NewRunID returns a random run identifier.
func NewRunID() string { return uuid.NewString() }

// Checksum is the manifest form of the xxh3 hash of data.
func Checksum(data []byte) string { return fmt.Sprintf("%016x", xxh3.Hash(data)) }

// Writer puts files into a Sink and records them in the manifest.
type Writer struct {
	sink     Sink
	manifest Manifest
}

// NewWriter starts a manifest for one run.
func NewWriter(sink Sink, runID, dialect, source string, now time.Time) *Writer {
	return &Writer{
		sink: sink,
		manifest: Manifest{
			RunID:     runID,
			Generated: now.UTC(),
			Dialect:   dialect,
			Source:    source,
		},
	}
}

// Put stores data and appends its entry.
func (w *Writer) Put(ctx context.Context, e Entry, data []byte, contentType string) error {
	if err := w.sink.Put(ctx, e.Name, data, contentType); err != nil {
		return err
	}
	e.Bytes = len(data)
	e.XXH3 = Checksum(data)
	w.manifest.Files = append(w.manifest.Files, e)
	return nil
}

// Manifest returns a copy of the entries recorded so far.
func (w *Writer) Manifest() Manifest {
	m := w.manifest
	m.Files = append([]Entry(nil), w.manifest.Files...)
	return m
}

// Finish stores manifest.json.
func (w *Writer) Finish(ctx context.Context) error {
	data, err := json.MarshalIndent(w.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode manifest: %w", err)
	}
	return w.sink.Put(ctx, ManifestName, append(data, '\n'), "application/json")
}

// Location forwards to the sink.
func (w *Writer) Location(name string) string { return w.sink.Location(name) }
