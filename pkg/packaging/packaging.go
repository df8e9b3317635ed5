// Package packaging sequences the wix stages into a single
// installer build: acquire toolchain, render manifest, harvest,
// compile, link.
package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/wixpack/wixpack/pkg/contexts/ctxlog"
	"github.com/wixpack/wixpack/pkg/toolchain"
	"github.com/wixpack/wixpack/pkg/wix"
	"go.opencensus.io/trace"
)

// State identifies the pipeline step being executed. The pipeline is
// strictly sequential and non-resumable: after a failure the caller
// restarts from StatePreparing.
type State string

const (
	StatePreparing  State = "preparing"
	StateHarvesting State = "harvesting"
	StateCompiling  State = "compiling"
	StateLinking    State = "linking"
	StateDone       State = "done"
)

// StageFailureError reports which pipeline state failed. The tool
// output leading up to the failure has already been streamed to the
// logger.
type StageFailureError struct {
	State State
	Err   error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("pipeline failed while %s: %v", e.State, e.Err)
}

func (e *StageFailureError) Unwrap() error { return e.Err }

// PackageOptions describes the msi to build.
type PackageOptions struct {
	Name         string // product name, also the install folder name
	Version      string // msi ProductVersion
	Manufacturer string
	Identifier   string // stable identifier the msi codes are derived from
	Root         string // directory of files to package
	OutputPath   string // where the finished msi lands
	Arch         string // "x64", "x86", or empty for the current arch

	WixPath  string // existing toolchain directory; acquired into CacheDir when empty
	CacheDir string // where acquired toolchains live

	SkipValidation bool
}

// BuildMSI runs the whole pipeline and returns the artifact path.
// Concurrent builds against the same build or output directory are
// not supported; callers serialize them.
func BuildMSI(ctx context.Context, opts *PackageOptions) (string, error) {
	ctx, span := trace.StartSpan(ctx, "packaging.BuildMSI")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	level.Debug(logger).Log("msg", "state", "state", StatePreparing)

	wixTool, outputPath, err := prepare(ctx, opts)
	if err != nil {
		return "", &StageFailureError{State: StatePreparing, Err: err}
	}
	defer wixTool.Cleanup()

	level.Debug(logger).Log("msg", "state", "state", StateHarvesting)

	if err := wixTool.Heat(ctx); err != nil {
		return "", &StageFailureError{State: StateHarvesting, Err: errors.Wrap(err, "running heat")}
	}

	level.Debug(logger).Log("msg", "state", "state", StateCompiling)

	if err := wixTool.Candle(ctx); err != nil {
		return "", &StageFailureError{State: StateCompiling, Err: errors.Wrap(err, "running candle")}
	}

	level.Debug(logger).Log("msg", "state", "state", StateLinking)

	// A stale msi from a previous run must not survive a failed
	// link, so clear the output path first.
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return "", &StageFailureError{State: StateLinking, Err: errors.Wrap(err, "clearing output path")}
	}

	if err := wixTool.Light(ctx, outputPath); err != nil {
		return "", &StageFailureError{State: StateLinking, Err: errors.Wrap(err, "running light")}
	}

	level.Info(logger).Log(
		"msg", "state",
		"state", StateDone,
		"msi", outputPath,
	)

	return outputPath, nil
}

// prepare ensures a toolchain, renders the manifest, and sets up the
// wix build dir. Everything here maps to the Preparing state.
func prepare(ctx context.Context, opts *PackageOptions) (*wix.Tool, string, error) {
	if err := isDirectory(opts.Root); err != nil {
		return nil, "", err
	}

	install, err := ensureToolchain(ctx, opts)
	if err != nil {
		return nil, "", errors.Wrap(err, "ensuring toolchain")
	}

	mainWxs, err := wix.RenderMainWxs(wix.NewManifestData(
		opts.Name,
		opts.Version,
		opts.Manufacturer,
		opts.Identifier,
	))
	if err != nil {
		return nil, "", errors.Wrap(err, "rendering manifest")
	}

	// Light runs with the build dir as cwd, so the output path must
	// be absolute.
	outputPath, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return nil, "", errors.Wrapf(err, "resolving output path %s", opts.OutputPath)
	}

	wixOpts := []wix.WixOpt{wix.WithWix(install.Dir)}
	switch opts.Arch {
	case "":
		// wix.New picks the current arch
	case "x64":
		wixOpts = append(wixOpts, wix.As64bit())
	case "x86":
		wixOpts = append(wixOpts, wix.As32bit())
	default:
		return nil, "", errors.Errorf("unknown arch %s", opts.Arch)
	}
	if opts.SkipValidation {
		wixOpts = append(wixOpts, wix.SkipValidation())
	}

	wixTool, err := wix.New(opts.Root, mainWxs, wixOpts...)
	if err != nil {
		return nil, "", errors.Wrap(err, "setting up wix build dir")
	}

	return wixTool, outputPath, nil
}

func ensureToolchain(ctx context.Context, opts *PackageOptions) (*toolchain.Installation, error) {
	// An explicitly provided toolchain is trusted as-is. A missing
	// tool then surfaces as a spawn failure on the stage that needed
	// it, which names the actual problem.
	if opts.WixPath != "" {
		return &toolchain.Installation{Dir: opts.WixPath}, nil
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "wixpack-cache")
	}

	return toolchain.NewAcquirer().Acquire(ctx, filepath.Join(cacheDir, "wix311"))
}

func isDirectory(d string) error {
	dStat, err := os.Stat(d)
	if err != nil {
		return errors.Wrapf(err, "missing packageRoot %s", d)
	}

	if !dStat.IsDir() {
		return errors.Errorf("packageRoot (%s) isn't a directory", d)
	}

	return nil
}
