// Package project reads and writes project files: the serialized state of
// one canvas, holding the connection graph and the packet store snapshot.
//
// Files are JSON, validated against an embedded CUE schema before decoding
// so a corrupt or hand-edited file fails with positioned diagnostics
// instead of half-loading.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/nodeflow/internal/engine"
	"github.com/roach88/nodeflow/internal/graph"
)

// CurrentVersion is the project file format version this build writes.
const CurrentVersion = 1

// File is the on-disk project format.
type File struct {
	Version     int                `json:"version"`
	Connections []graph.Connection `json:"connections"`
	Packets     engine.Snapshot    `json:"packets"`
}

// Capture snapshots an engine into a saveable File. In-flight content
// upgrades are flushed first so saved packets carry their external refs.
func Capture(e *engine.Engine) *File {
	e.Flush()
	return &File{
		Version:     CurrentVersion,
		Connections: e.Graph().Connections(),
		Packets:     e.Serialize(),
	}
}

// Apply loads a File into an engine, replacing all current state.
// No propagation or notifications follow: the snapshot already contains
// the incoming lists as they stood at save time.
func Apply(f *File, e *engine.Engine) {
	e.Reset()
	e.Graph().Rebuild(f.Connections)
	e.Deserialize(f.Packets)
}

// Load reads and validates a project file.
// Validation failures are returned in full, each with its source position.
func Load(path string) (*File, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&ValidationError{Code: ErrCodeRead, Message: fmt.Sprintf("reading project file: %v", err)}}
	}

	if errs := Validate(filepath.Base(path), data); len(errs) > 0 {
		return nil, errs
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, []error{&ValidationError{Code: ErrCodeParse, Message: fmt.Sprintf("decoding project file: %v", err)}}
	}
	if f.Version > CurrentVersion {
		return nil, []error{&ValidationError{
			Code:    ErrCodeVersion,
			Message: fmt.Sprintf("project file version %d is newer than supported version %d", f.Version, CurrentVersion),
		}}
	}
	return &f, nil
}

// Save writes a project file atomically: the content lands in a temp file
// first, then renames over the destination, so a crash mid-write never
// leaves a truncated project.
func Save(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project file: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".project-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing project file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing project file: %w", err)
	}
	return nil
}
