// Package toolchain downloads, verifies, and lays out the wix
// toolset binaries that the packaging pipeline drives.
//
// The toolset is pinned by URL and SHA-256. Acquisition is
// idempotent: a directory that already verifies is reused as-is, and
// re-extraction overwrites files in place, so one toolchain
// directory can be shared read-only across builds.
package toolchain

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/wixpack/wixpack/pkg/contexts/ctxlog"
)

// The wix 3.11 binaries release. Upgrading the toolset means
// changing both values together.
const (
	DefaultURL    = "https://github.com/wixtoolset/wix3/releases/download/wix3111rtm/wix311-binaries.zip"
	DefaultSHA256 = "37f0a533b0978a454efb5dc3bd3598becf9660aaf4287e55bf68ca6b527d051d"
)

// Installation is an on-disk wix toolset. It is a plain value so
// tests can point it at a directory of fake tools without touching
// the network.
type Installation struct {
	Dir string
}

func (i Installation) HeatPath() string   { return filepath.Join(i.Dir, "heat.exe") }
func (i Installation) CandlePath() string { return filepath.Join(i.Dir, "candle.exe") }
func (i Installation) LightPath() string  { return filepath.Join(i.Dir, "light.exe") }

// Verify checks that all three stage tools exist. A partially
// extracted toolchain must never be treated as usable, so this runs
// both before reusing a cached directory and after extraction.
func (i Installation) Verify() error {
	for _, tool := range []string{i.HeatPath(), i.CandlePath(), i.LightPath()} {
		info, err := os.Stat(tool)
		if err != nil {
			return errors.Wrapf(err, "missing toolchain binary %s", tool)
		}
		if info.IsDir() {
			return errors.Errorf("toolchain binary %s is a directory", tool)
		}
	}
	return nil
}

// Acquirer fetches and extracts a pinned toolchain archive. The zero
// value is not usable; call NewAcquirer.
type Acquirer struct {
	URL    string
	SHA256 string
	Client *http.Client
}

func NewAcquirer() *Acquirer {
	return &Acquirer{
		URL:    DefaultURL,
		SHA256: DefaultSHA256,
		Client: http.DefaultClient,
	}
}

// Acquire ensures a verified toolchain exists under destDir,
// downloading and extracting the pinned archive if needed. The
// returned Installation has passed Verify.
func (a *Acquirer) Acquire(ctx context.Context, destDir string) (*Installation, error) {
	logger := ctxlog.FromContext(ctx)

	install := &Installation{Dir: destDir}
	if err := install.Verify(); err == nil {
		level.Debug(logger).Log(
			"msg", "toolchain already present",
			"dir", destDir,
		)
		return install, nil
	}

	data, err := a.fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "downloading toolchain archive")
	}

	if err := VerifySHA256(data, a.SHA256); err != nil {
		return nil, errors.Wrap(err, "verifying toolchain archive")
	}

	level.Debug(logger).Log(
		"msg", "extracting toolchain",
		"dir", destDir,
	)

	if err := extract(a.URL, data, destDir); err != nil {
		return nil, errors.Wrap(err, "extracting toolchain archive")
	}

	if err := install.Verify(); err != nil {
		return nil, errors.Wrap(err, "toolchain incomplete after extraction")
	}

	return install, nil
}

func (a *Acquirer) fetch(ctx context.Context) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)

	level.Debug(logger).Log(
		"msg", "starting download",
		"url", a.URL,
	)

	downloadReq, err := http.NewRequest("GET", a.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	downloadReq = downloadReq.WithContext(ctx)

	response, err := a.Client.Do(downloadReq)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't download toolchain archive")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed download. Got http status %s", response.Status)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	return data, nil
}
