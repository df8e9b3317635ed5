package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/logutil"
	"github.com/kolide/kit/version"
	"github.com/peterbourgon/ff/v3"
	"github.com/wixpack/wixpack/pkg/contexts/ctxlog"
	"github.com/wixpack/wixpack/pkg/packaging"
)

func runVersion(args []string) error {
	version.PrintFull()
	return nil
}

func runMake(args []string) error {
	flagset := flag.NewFlagSet("make", flag.ExitOnError)
	var (
		flDebug = flagset.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flName = flagset.String(
			"name",
			"",
			"the product name, used for the msi metadata and install folder",
		)
		flVersion = flagset.String(
			"package_version",
			"0.1.0",
			"the product version stamped into the msi",
		)
		flManufacturer = flagset.String(
			"manufacturer",
			"",
			"the manufacturer name stamped into the msi",
		)
		flIdentifier = flagset.String(
			"identifier",
			"",
			"stable identifier the msi upgrade/product codes are derived from (defaults to the product name)",
		)
		flRoot = flagset.String(
			"src_dir",
			"",
			"the directory of files to package",
		)
		flOutput = flagset.String(
			"out",
			"",
			"the path the finished msi is written to",
		)
		flArch = flagset.String(
			"arch",
			"",
			"msi architecture, x64 or x86 (defaults to the current arch)",
		)
		flWixPath = flagset.String(
			"wix_path",
			"",
			"an existing wix toolset directory; when empty the pinned toolset is downloaded into the cache",
		)
		flCacheDir = flagset.String(
			"cache_dir",
			"",
			"where downloaded toolsets are cached",
		)
		flSkipValidation = flagset.Bool(
			"skip_validation",
			false,
			"skip light's msi validation, needed under wine",
		)
	)

	flagset.Usage = usageFor(flagset, "wixpack make [flags]")
	if err := ff.Parse(flagset, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("WIXPACK"),
	); err != nil {
		return err
	}

	logger := logutil.NewCLILogger(*flDebug)
	ctx := ctxlog.NewContext(context.Background(), logger)

	if *flName == "" {
		return fmt.Errorf("name must be set")
	}
	if *flRoot == "" {
		return fmt.Errorf("src_dir must be set")
	}
	if *flOutput == "" {
		return fmt.Errorf("out must be set")
	}

	identifier := *flIdentifier
	if identifier == "" {
		identifier = *flName
	}

	msiPath, err := packaging.BuildMSI(ctx, &packaging.PackageOptions{
		Name:           *flName,
		Version:        *flVersion,
		Manufacturer:   *flManufacturer,
		Identifier:     identifier,
		Root:           *flRoot,
		OutputPath:     *flOutput,
		Arch:           *flArch,
		WixPath:        *flWixPath,
		CacheDir:       *flCacheDir,
		SkipValidation: *flSkipValidation,
	})
	if err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "created package",
		"msi", msiPath,
	)

	return nil
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "USAGE\n")
	fmt.Fprintf(os.Stderr, "  %s <mode> --help\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "MODES\n")
	fmt.Fprintf(os.Stderr, "  make         Build a windows installer package\n")
	fmt.Fprintf(os.Stderr, "  version      Print full version information\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "VERSION\n")
	fmt.Fprintf(os.Stderr, "  %s\n", version.Version().Version)
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var run func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "version":
		run = runVersion
	case "make":
		run = runMake
	default:
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
