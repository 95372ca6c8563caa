package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/inodb/txmap/internal/cache"
)

// RegistryCache manages a gob-serialized transcript registry on disk:
//
//	{path}       (serialized chromosome -> strand -> transcripts)
//	{path}.meta  (annotation file fingerprint)
type RegistryCache struct {
	path string
}

// NewRegistryCache creates a registry cache backed by the artifact at path.
func NewRegistryCache(path string) *RegistryCache {
	return &RegistryCache{path: path}
}

// Path returns the artifact path.
func (rc *RegistryCache) Path() string {
	return rc.path
}

func (rc *RegistryCache) metaPath() string {
	return rc.path + ".meta"
}

// Exists reports whether the artifact file is present.
func (rc *RegistryCache) Exists() bool {
	_, err := os.Stat(rc.path)
	return err == nil
}

// Valid checks whether the artifact was built from the annotation file
// described by fp.
func (rc *RegistryCache) Valid(fp FileFingerprint) bool {
	meta, err := readMeta(rc.metaPath())
	if err != nil {
		return false
	}
	if !fp.matches(meta) {
		return false
	}
	return rc.Exists()
}

// Load decodes the artifact into a finalized registry.
func (rc *RegistryCache) Load() (*cache.Registry, error) {
	f, err := os.Open(rc.path)
	if err != nil {
		return nil, fmt.Errorf("open registry artifact: %w", err)
	}
	defer f.Close()

	var groups cache.Groups
	if err := gob.NewDecoder(f).Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode registry artifact %s: %w", rc.path, err)
	}
	return cache.NewRegistryFromGroups(groups), nil
}

// Write serializes reg and records fp in the sidecar. The artifact is
// written to a temporary file first so a failed write never leaves a
// truncated artifact behind.
func (rc *RegistryCache) Write(reg *cache.Registry, fp FileFingerprint) error {
	if dir := filepath.Dir(rc.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}

	tmp := rc.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create registry artifact: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(reg.Groups()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode registry artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close registry artifact: %w", err)
	}
	if err := os.Rename(tmp, rc.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename registry artifact: %w", err)
	}

	return writeMeta(rc.metaPath(), fp, map[string]string{
		"transcripts": strconv.Itoa(reg.TranscriptCount()),
	})
}

// Clear removes the artifact and its sidecar.
func (rc *RegistryCache) Clear() {
	os.Remove(rc.path)
	os.Remove(rc.metaPath())
}
