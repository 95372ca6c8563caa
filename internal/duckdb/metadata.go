package duckdb

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// metaEntries returns the key=value pairs that identify the annotation
// source in an artifact sidecar.
func (fp FileFingerprint) metaEntries() []struct{ key, val string } {
	return []struct{ key, val string }{
		{"annotation_size", strconv.FormatInt(fp.Size, 10)},
		{"annotation_modtime", fp.ModTime.UTC().Format(time.RFC3339Nano)},
	}
}

// matches reports whether meta was written for fp.
func (fp FileFingerprint) matches(meta map[string]string) bool {
	for _, e := range fp.metaEntries() {
		if meta[e.key] != e.val {
			return false
		}
	}
	return true
}

func writeMeta(path string, fp FileFingerprint, extra map[string]string) error {
	var lines []string
	for _, e := range fp.metaEntries() {
		lines = append(lines, e.key+"="+e.val)
	}
	lines = append(lines, "annotation_path="+fp.Path)
	for k, v := range extra {
		lines = append(lines, k+"="+v)
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

func readMeta(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
