package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"photomedit/internal/logging"
	"photomedit/internal/metrics"
)

// ErrTagToolUnavailable means the external tag tool is not on PATH.
var ErrTagToolUnavailable = errors.New("exiftool not found in PATH")

const tagToolTimeout = 60 * time.Second

// ExifTool shells out to exiftool for embedded tag access. Reads use JSON
// output with numeric values and group prefixes; writes go through
// -overwrite_original so no _original backups litter the library.
type ExifTool struct {
	binary  string
	timeout time.Duration
}

// NewExifTool locates exiftool on PATH.
func NewExifTool() (*ExifTool, error) {
	binary, err := exec.LookPath("exiftool")
	if err != nil {
		return nil, ErrTagToolUnavailable
	}
	return &ExifTool{binary: binary, timeout: tagToolTimeout}, nil
}

// ReadTags reads all embedded tags of a file as a flat group-qualified map.
func (e *ExifTool) ReadTags(path string) (Tags, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, "-j", "-n", "-G", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.TagToolInvocationsTotal.WithLabelValues("read", "error").Inc()
		logging.Debug("exiftool read %s: %v (%s)", path, err, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("exiftool read %s: %w", path, err)
	}
	metrics.TagToolInvocationsTotal.WithLabelValues("read", "success").Inc()

	var records []Tags
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		return nil, fmt.Errorf("exiftool output for %s: %w", path, err)
	}
	if len(records) == 0 {
		return Tags{}, nil
	}
	return records[0], nil
}

// WriteTags writes the given tags into the file in place. Tag names are
// sorted so the argument order is stable across runs.
func (e *ExifTool) WriteTags(path string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	// -P preserves the file modification time, -m tolerates minor tag
	// violations in older camera files.
	args := []string{"-overwrite_original", "-P", "-m"}
	for _, name := range names {
		args = append(args, fmt.Sprintf("-%s=%s", name, tags[name]))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.TagToolInvocationsTotal.WithLabelValues("write", "error").Inc()
		logging.Debug("exiftool write %s: %v (%s)", path, err, strings.TrimSpace(stderr.String()))
		return fmt.Errorf("exiftool write %s: %w", path, err)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		logging.Debug("exiftool write %s warnings: %s", path, msg)
	}
	metrics.TagToolInvocationsTotal.WithLabelValues("write", "success").Inc()
	return nil
}
