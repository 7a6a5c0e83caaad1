package runtime

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractTarGz unpacks a gzipped tarball into dest. Entries that would
// escape dest are rejected.
func extractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath) //nolint:gosec // G304: controlled download path
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("read gzip header: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeExtractedFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Node tarballs ship relative symlinks (e.g. bin/npx -> npm).
			// Reject anything pointing outside the destination.
			if _, err := securePath(filepath.Dir(target), hdr.Linkname); err != nil {
				return err
			}

			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("create symlink: %w", err)
			}
		default:
			// Skip other entry types.
		}
	}
}

// extractZip unpacks a zip archive into dest with the same path guards.
func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := securePath(dest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			continue
		}

		src, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open zip entry: %w", err)
		}

		writeErr := writeExtractedFile(target, src, entry.Mode())
		_ = src.Close()

		if writeErr != nil {
			return writeErr
		}
	}

	return nil
}

// securePath joins name onto dest and rejects absolute or escaping entries.
func securePath(dest, name string) (string, error) {
	cleanName := filepath.Clean(name)
	if filepath.IsAbs(cleanName) || strings.HasPrefix(cleanName, "..") {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}

	target := filepath.Join(dest, cleanName)

	destClean := filepath.Clean(dest)
	if target != destClean && !strings.HasPrefix(target, destClean+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}

	return target, nil
}

func writeExtractedFile(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil { //nolint:gosec // G110: archives come from nodejs.org releases
		_ = out.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}
