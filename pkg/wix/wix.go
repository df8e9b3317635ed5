package wix

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

type Tool struct {
	wixPath        string   // Where is wix installed
	packageRoot    string   // What's the root of the packaging files?
	buildDir       string   // The wix tools want to work in a build dir.
	msArch         string   // What's the microsoft architecture name?
	componentGroup string   // Name heat assigns the harvested component group
	directoryRef   string   // Directory the harvested components install into
	skipValidation bool     // Skip light validation. Needed for 32bit wine environments.
	cleanDirs      []string // directories to rm on cleanup

	execCC func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
}

type WixOpt func(*Tool)

func As64bit() WixOpt {
	return func(wo *Tool) {
		wo.msArch = "x64"
	}
}

func As32bit() WixOpt {
	return func(wo *Tool) {
		wo.msArch = "x86"
	}
}

// If you're running this in a virtual win environment, you probably
// need to skip validation. LGHT0216 is a common error.
func SkipValidation() WixOpt {
	return func(wo *Tool) {
		wo.skipValidation = true
	}
}

func WithWix(path string) WixOpt {
	return func(wo *Tool) {
		wo.wixPath = path
	}
}

func WithBuildDir(path string) WixOpt {
	return func(wo *Tool) {
		wo.buildDir = path
	}
}

func WithComponentGroup(name string) WixOpt {
	return func(wo *Tool) {
		wo.componentGroup = name
	}
}

func WithDirectoryRef(ref string) WixOpt {
	return func(wo *Tool) {
		wo.directoryRef = ref
	}
}

func withExecCC(execCC func(context.Context, string, ...string) *exec.Cmd) WixOpt {
	return func(wo *Tool) {
		wo.execCC = execCC
	}
}

// New takes a packageRoot of files, and the rendered Installer.wxs
// manifest, and returns a struct suitable for building packages
// with. The manifest is written into the build dir, where the
// compile stage expects to find it.
func New(packageRoot string, mainWxsContent []byte, wixOpts ...WixOpt) (*Tool, error) {
	wo := &Tool{
		wixPath:        `C:\wix311`,
		packageRoot:    packageRoot,
		componentGroup: DefaultComponentGroup,
		directoryRef:   DefaultDirectoryRef,

		execCC: exec.CommandContext,
	}

	for _, opt := range wixOpts {
		opt(wo)
	}

	var err error
	if wo.buildDir == "" {
		wo.buildDir, err = os.MkdirTemp("", "wix-build-dir")
		if err != nil {
			return nil, errors.Wrap(err, "making temp wix-build-dir")
		}
		wo.cleanDirs = append(wo.cleanDirs, wo.buildDir)
	}

	if wo.msArch == "" {
		switch runtime.GOARCH {
		case "386":
			wo.msArch = "x86"
		case "amd64":
			wo.msArch = "x64"
		default:
			return nil, errors.Errorf("unknown arch for windows %s", runtime.GOARCH)
		}
	}

	mainWxsPath := filepath.Join(wo.buildDir, "Installer.wxs")

	if err := os.WriteFile(mainWxsPath, mainWxsContent, 0644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", mainWxsPath)
	}

	return wo, nil
}

// Cleanup removes temp directories. Meant to be called in a defer.
func (wo *Tool) Cleanup() {
	for _, d := range wo.cleanDirs {
		os.RemoveAll(d)
	}
}

// Heat invokes wix's heat command. This examines a directory and
// "harvests" the files into an xml structure. See
// http://wixtoolset.org/documentation/manual/v3/overview/heat.html
func (wo *Tool) Heat(ctx context.Context) error {
	return wo.execLog(ctx,
		filepath.Join(wo.wixPath, "heat.exe"),
		"dir", wo.packageRoot,
		"-nologo",
		"-gg",
		"-srd",
		"-cg", wo.componentGroup,
		"-dr", wo.directoryRef,
		"-var", "var.SourceDir",
		"-out", "AppFiles.wxs",
	)
}

// Candle invokes wix's candle command. This is the wix compiler. It
// preprocesses and compiles WiX source files into object files
// (.wixobj).
func (wo *Tool) Candle(ctx context.Context) error {
	return wo.execLog(ctx,
		filepath.Join(wo.wixPath, "candle.exe"),
		"-nologo",
		"-arch", wo.msArch,
		"-dSourceDir="+wo.packageRoot,
		"Installer.wxs",
		"AppFiles.wxs",
	)
}

// Light invokes wix's light command. This links and binds one or
// more .wixobj files and creates a Windows Installer database (.msi
// or .msm). See
// http://wixtoolset.org/documentation/manual/v3/overview/light.html
// for options.
func (wo *Tool) Light(ctx context.Context, outputPath string) error {
	args := []string{
		"-nologo",
		"-dcl:high", // compression level
		"-dSourceDir=" + wo.packageRoot,
		"Installer.wixobj",
		"AppFiles.wixobj",
		"-out", outputPath,
	}

	if wo.skipValidation {
		args = append(args, "-sval")
	}

	return wo.execLog(ctx,
		filepath.Join(wo.wixPath, "light.exe"),
		args...,
	)
}
