// Package archive packages a directory tree into a single tar.gz blob and
// back. File selection is driven by the manifest's include/exclude globs.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ext is the artifact suffix for packaged archives.
const Ext = ".tgz"

// Pack creates a tar.gz archive of the files under dir whose dir-relative
// paths match at least one include glob and no exclude glob. The package
// manifest (pack.toml / pack.json) always travels with the artifact
// regardless of the patterns. Entries are added in sorted order so packing
// is deterministic.
func Pack(dir string, includes, excludes []string) ([]byte, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !selected(rel, includes, excludes) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan package directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched the include patterns")
	}
	sort.Strings(files)

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	for _, rel := range files {
		if err := addFileToArchive(tarWriter, dir, rel); err != nil {
			return nil, fmt.Errorf("failed to add file %s: %w", rel, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// selected applies include/exclude globs to a slash-separated relative path.
func selected(rel string, includes, excludes []string) bool {
	// Manifests are required for identity re-verification on pull.
	if rel == "pack.toml" || rel == "pack.json" {
		return true
	}

	included := len(includes) == 0
	for _, pattern := range includes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return false
		}
	}
	return true
}

// addFileToArchive adds a single file to the tar archive
func addFileToArchive(tarWriter *tar.Writer, dir, rel string) error {
	file, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}

	// Use forward slashes and dir-relative names in the archive
	header.Name = rel

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}

// Unpack extracts a tar.gz archive into destDir.
func Unpack(data []byte, destDir string) error {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		if err := extractFile(tarReader, header, destDir); err != nil {
			return fmt.Errorf("failed to extract file %s: %w", header.Name, err)
		}
	}

	return nil
}

// extractFile extracts a single file from tar archive
func extractFile(tarReader *tar.Reader, header *tar.Header, destDir string) error {
	// Clean the file path to prevent directory traversal
	cleanName := filepath.Clean(filepath.FromSlash(header.Name))
	if strings.Contains(cleanName, "..") || filepath.IsAbs(cleanName) {
		return fmt.Errorf("invalid file path: %s", header.Name)
	}

	destPath := filepath.Join(destDir, cleanName)

	if header.Typeflag == tar.TypeDir {
		return os.MkdirAll(destPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	outFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, tarReader)
	return err
}
