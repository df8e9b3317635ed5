package toolchain

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	body string
	mode os.FileMode
}

func makeZip(t *testing.T, entries []zipEntry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range entries {
		hdr := &zip.FileHeader{
			Name:   entry.name,
			Method: zip.Deflate,
		}
		hdr.SetMode(entry.mode)

		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)

		_, err = w.Write([]byte(entry.body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractZip(t *testing.T) {
	t.Parallel()

	entries := []zipEntry{
		{name: "heat.exe", body: "heat binary", mode: 0755},
		{name: "doc/heat.txt", body: "heat docs", mode: 0644},
		{name: "doc/nested/candle.txt", body: "candle docs", mode: 0644},
	}

	destDir := t.TempDir()
	require.NoError(t, extractZip(makeZip(t, entries), destDir))

	for _, entry := range entries {
		contents, err := os.ReadFile(filepath.Join(destDir, filepath.FromSlash(entry.name)))
		require.NoError(t, err)
		require.Equal(t, entry.body, string(contents))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(destDir, "heat.exe"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestExtractZipOverwrites(t *testing.T) {
	t.Parallel()

	destDir := t.TempDir()

	require.NoError(t, extractZip(makeZip(t, []zipEntry{
		{name: "heat.exe", body: "old contents", mode: 0755},
	}), destDir))

	// Re-extracting replaces files in place without error.
	require.NoError(t, extractZip(makeZip(t, []zipEntry{
		{name: "heat.exe", body: "new contents", mode: 0755},
	}), destDir))

	contents, err := os.ReadFile(filepath.Join(destDir, "heat.exe"))
	require.NoError(t, err)
	require.Equal(t, "new contents", string(contents))
}

func TestExtractZipMalformed(t *testing.T) {
	t.Parallel()

	require.Error(t, extractZip([]byte("not a zip archive"), t.TempDir()))
}

func makeTarGz(t *testing.T, entries []zipEntry) []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, entry := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     entry.name,
			Mode:     int64(entry.mode),
			Size:     int64(len(entry.body)),
			Typeflag: tar.TypeReg,
		}))

		_, err := tw.Write([]byte(entry.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()

	entries := []zipEntry{
		{name: "heat.exe", body: "heat binary", mode: 0755},
		{name: "doc/heat.txt", body: "heat docs", mode: 0644},
	}

	destDir := t.TempDir()
	require.NoError(t, extractTarGz(makeTarGz(t, entries), destDir))

	for _, entry := range entries {
		contents, err := os.ReadFile(filepath.Join(destDir, filepath.FromSlash(entry.name)))
		require.NoError(t, err)
		require.Equal(t, entry.body, string(contents))
	}
}

func TestExtractTarGzMalformed(t *testing.T) {
	t.Parallel()

	require.Error(t, extractTarGz([]byte("not a tar.gz archive"), t.TempDir()))
}

func TestExtractDispatchesOnSuffix(t *testing.T) {
	t.Parallel()

	entries := []zipEntry{
		{name: "light.exe", body: "light binary", mode: 0755},
	}

	zipDir := t.TempDir()
	require.NoError(t, extract("https://example.com/wix311-binaries.zip", makeZip(t, entries), zipDir))
	_, err := os.Stat(filepath.Join(zipDir, "light.exe"))
	require.NoError(t, err)

	tarDir := t.TempDir()
	require.NoError(t, extract("https://example.com/wix311-binaries.tar.gz", makeTarGz(t, entries), tarDir))
	_, err = os.Stat(filepath.Join(tarDir, "light.exe"))
	require.NoError(t, err)
}
