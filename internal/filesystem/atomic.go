package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"photomedit/internal/logging"
	"photomedit/internal/metrics"
)

// TempSuffix is appended to the target path for the intermediate file.
// The temp file lives in the same directory as the target so the final
// rename stays on one filesystem and is atomic.
const TempSuffix = ".tmp"

// WriteAtomic writes the content produced by produce to targetPath using the
// temp-file protocol: write to targetPath+".tmp", fsync, verify the byte
// count, rename over the target, confirm the temp file is gone. On any
// failure the temp file is removed and the original target is untouched.
func WriteAtomic(targetPath string, produce func(io.Writer) error) error {
	tempPath := targetPath + TempSuffix

	err := writeTemp(tempPath, produce)
	if err != nil {
		removeQuiet(tempPath)
		metrics.AtomicWritesTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		removeQuiet(tempPath)
		metrics.AtomicWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("atomic rename: %w", err)
	}

	metrics.AtomicWritesTotal.WithLabelValues("success").Inc()
	return nil
}

// writeTemp writes, syncs and size-verifies the temp file.
func writeTemp(tempPath string, produce func(io.Writer) error) error {
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cw := &countingWriter{w: f}
	if err := produce(cw); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}
	if info.Size() != cw.n {
		return fmt.Errorf("temp file size mismatch: wrote %d bytes, on disk %d", cw.n, info.Size())
	}
	return nil
}

// WriteFileAtomic is a convenience wrapper for writing a byte slice.
func WriteFileAtomic(targetPath string, data []byte) error {
	return WriteAtomic(targetPath, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyVerify copies src to dst across directories: copy to dst+".tmp",
// fsync, verify the copied size against the source, rename into place.
// The source stays where it is.
func CopyVerify(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	err = WriteAtomic(dst, func(w io.Writer) error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		n, err := io.Copy(w, in)
		if err != nil {
			return err
		}
		if n != srcInfo.Size() {
			return fmt.Errorf("copied %d bytes, source has %d", n, srcInfo.Size())
		}
		return nil
	})
	return err
}

// CopyVerifyRemove moves src to dst: CopyVerify, then delete the original.
// Used by the reject operation, which crosses from the library tree into
// the .rejected mirror.
func CopyVerifyRemove(src, dst string) error {
	if err := CopyVerify(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// The copy is committed; losing the delete leaves a duplicate, not
		// data loss. Surface it so the caller can report the failure.
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove temp file %s: %v", path, err)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
