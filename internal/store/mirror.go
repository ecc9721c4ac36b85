package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"github.com/xtxerr/telemetryd/internal/errors"
)

// mirrorIndent matches the indentation of mirrors written by older servers.
const mirrorIndent = "   "

// Mirror is the durable JSON copy of the store: one object mapping peer
// addresses to records. Mirror does no locking of its own; the Store
// serializes every call.
type Mirror struct {
	path string
}

// NewMirror returns a mirror backed by the file at path.
func NewMirror(path string) *Mirror {
	return &Mirror{path: path}
}

// Path returns the mirror file path.
func (m *Mirror) Path() string {
	return m.path
}

// Load reads the mirror. A missing or empty file loads as an empty map.
// Comments and trailing commas left by hand edits are tolerated.
func (m *Mirror) Load() (map[string]Record, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}

	data = bytes.TrimSpace(jsonc.ToJSON(data))
	if len(data) == 0 {
		return make(map[string]Record), nil
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", m.path, err, errors.ErrCorruptMirror)
	}
	if records == nil {
		records = make(map[string]Record)
	}
	return records, nil
}

// Merge overlays records onto the current file content by address and
// writes the result back. Addresses present only on disk are kept; an
// on-disk spelling of an overlaid address (e.g. "FE80::1" for "fe80::1")
// is replaced rather than kept beside it. A corrupt file is left
// untouched and reported.
func (m *Mirror) Merge(records map[string]Record) error {
	onDisk, err := m.Load()
	if err != nil {
		return err
	}
	for addr := range onDisk {
		if _, overlaid := records[addr]; overlaid {
			continue
		}
		if key, ok := NormalizeAddress(addr); ok {
			if _, overlaid := records[key]; overlaid {
				delete(onDisk, addr)
			}
		}
	}
	for addr, rec := range records {
		onDisk[addr] = rec
	}
	return m.Write(onDisk)
}

// Write atomically replaces the mirror. The content is written to a
// temporary file in the same directory, fsynced and renamed into place,
// so readers never see a partial document.
func (m *Mirror) Write(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", mirrorIndent)
	if err != nil {
		return fmt.Errorf("marshal mirror: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(m.path)
	file, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary mirror: %w", err)
	}
	temporaryPath := file.Name()

	// Write, sync, close, in that order. On any failure remove the
	// temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("write temporary mirror: %w", err)
	}
	if err := file.Chmod(0o644); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("chmod temporary mirror: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("sync temporary mirror: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("close temporary mirror: %w", err)
	}

	if err := os.Rename(temporaryPath, m.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("rename mirror into place: %w", err)
	}

	if parent, err := os.Open(dir); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
