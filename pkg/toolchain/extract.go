package toolchain

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolide/kit/fsutil"
	"github.com/pkg/errors"
)

// extract dispatches on the archive format. The wix binaries ship as
// a zip; tar.gz is supported for toolchains mirrored as bundles.
func extract(url string, data []byte, destDir string) error {
	if strings.HasSuffix(url, ".tar.gz") || strings.HasSuffix(url, ".tgz") {
		return extractTarGz(data, destDir)
	}
	return extractZip(data, destDir)
}

// extractZip unpacks the archive entry-by-entry into destDir,
// creating parent directories as needed. Existing files are
// overwritten, which is what makes re-acquisition idempotent.
func extractZip(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, "opening zip archive")
	}

	for _, entry := range zr.File {
		destPath := filepath.Join(destDir, filepath.FromSlash(entry.Name))

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, fsutil.DirMode); err != nil {
				return errors.Wrapf(err, "creating directory %s", destPath)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), fsutil.DirMode); err != nil {
			return errors.Wrapf(err, "creating parent directory for %s", destPath)
		}

		if err := extractZipEntry(entry, destPath); err != nil {
			return err
		}
	}

	return nil
}

func extractZipEntry(entry *zip.File, destPath string) error {
	rc, err := entry.Open()
	if err != nil {
		return errors.Wrapf(err, "opening archive entry %s", entry.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return errors.Wrapf(err, "creating %s", destPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return errors.Wrapf(err, "writing %s", destPath)
	}

	return nil
}

func extractTarGz(data []byte, destDir string) error {
	if err := os.MkdirAll(destDir, fsutil.DirMode); err != nil {
		return errors.Wrapf(err, "creating %s", destDir)
	}

	// fsutil.UntarBundle untars into the directory containing its first
	// argument, so hand it a placeholder path inside destDir.
	tmp, err := os.CreateTemp("", "toolchain-*.tar.gz")
	if err != nil {
		return errors.Wrap(err, "creating temp archive file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp archive file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp archive file")
	}

	if err := fsutil.UntarBundle(filepath.Join(destDir, "toolchain"), tmp.Name()); err != nil {
		return errors.Wrap(err, "untarring toolchain archive")
	}

	return nil
}
