package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/lookbusy1344/fv1asm/config"
	"github.com/lookbusy1344/fv1asm/ihex"
	"github.com/lookbusy1344/fv1asm/parser"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

const (
	exitOK        = 0
	exitScan      = -1
	exitParse     = -2
	exitHasErrors = -3
	exitInternal  = -4
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		quiet       = flag.Bool("q", false, "Suppress warnings")
		clamp       = flag.Bool("c", false, "Clamp out-of-range operand values with a warning instead of erroring")
		spinReals   = flag.Bool("s", false, "Read literals 1 and 2 as 1.0 and 2.0; substitute 0 for missing operands")
		noSkip      = flag.Bool("n", false, "Don't chain-skip unused instruction space")
		programSlot = flag.Int("p", -1, "Target program slot 0-7 (hex output only)")
		binary      = flag.Bool("b", false, "Write raw binary output instead of Intel-HEX")
		configPath  = flag.String("config", "", "Load a config file instead of the platform default")
		errorLimit  = flag.Int("error-limit", 0, "Maximum error count before aborting (0 = use config default)")
	)
	flag.BoolVar(showVersion, "v", false, "Show version information")
	flag.BoolVar(quiet, "quiet", false, "Suppress warnings")
	flag.BoolVar(clamp, "clamp", false, "Clamp out-of-range operand values with a warning instead of erroring")
	flag.BoolVar(spinReals, "spinreals", false, "Read literals 1 and 2 as 1.0 and 2.0; substitute 0 for missing operands")
	flag.BoolVar(noSkip, "noskip", false, "Don't chain-skip unused instruction space")
	flag.BoolVar(binary, "binary", false, "Write raw binary output instead of Intel-HEX")
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("fv1asm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		return exitOK
	}

	if flag.NArg() != 2 {
		printHelp()
		return exitOK
	}
	infile, outfile := flag.Arg(0), flag.Arg(1)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		return exitInternal
	}
	opts := resolveOptions(cfg, *quiet, *clamp, *spinReals, *noSkip, *binary, *programSlot, *errorLimit)

	raw, err := os.ReadFile(infile) // #nosec G304 -- user-supplied source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading input: %v\n", err)
		return exitInternal
	}

	src, encInfo, err := decodeSource(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: decoding input: %v\n", err)
		return exitInternal
	}
	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "info: %s\n", encInfo)
	}

	p := parser.New(src, opts)
	res, perr := p.Parse()
	printDiagnostics(p.Diagnostics())

	if perr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", perr)
		var scanErr *parser.ScanError
		if errors.As(perr, &scanErr) {
			return exitScan
		}
		return exitParse
	}

	if opts.programSlot != -1 && opts.Binary {
		fmt.Fprintln(os.Stderr, "warning: -p is ignored for binary output")
	}

	if err := writeOutput(outfile, res.Image, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: writing output: %v\n", err)
		return exitInternal
	}

	if res.Diagnostics.HasErrors() {
		return exitHasErrors
	}
	return exitOK
}

// resolvedOptions carries parser.Options plus the CLI-only bits
// (program slot, binary) the parser package has no need of.
type resolvedOptions struct {
	parser.Options
	programSlot int
	Binary      bool
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func resolveOptions(cfg *config.Config, quiet, clamp, spinReals, noSkip, binary bool, slot, errLimit int) resolvedOptions {
	o := resolvedOptions{
		Options: parser.Options{
			Clamp:      clamp || cfg.Assemble.Clamp,
			Quiet:      quiet || cfg.Assemble.Quiet,
			SpinReals:  spinReals || cfg.Assemble.SpinReals,
			NoSkipPad:  noSkip || cfg.Assemble.NoSkipPad,
			ErrorLimit: cfg.Assemble.ErrorLimit,
		},
		programSlot: cfg.Assemble.ProgramSlot,
		Binary:      binary || cfg.Assemble.Binary,
	}
	if errLimit > 0 {
		o.ErrorLimit = errLimit
	}
	if slot != -1 {
		o.programSlot = slot
	}
	return o
}

// decodeSource applies spec.md §2.5's BOM/heuristic sniff — ported
// bit-for-bit from asfv1.py's main() — then transcodes with
// golang.org/x/text rather than hand-rolled UTF-16 decoding.
func decodeSource(raw []byte) (string, string, error) {
	switch {
	case len(raw) > 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		s, err := decodeUTF16(raw, unicode.LittleEndian)
		return s, "Input encoding set to UTF-16LE by BOM", err
	case len(raw) > 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		s, err := decodeUTF16(raw, unicode.BigEndian)
		return s, "Input encoding set to UTF-16BE by BOM", err
	case len(raw) > 7 && raw[7] == 0x00:
		s, err := decodeUTF16(raw, unicode.LittleEndian)
		return s, "Input encoding set to UTF-16LE", err
	default:
		return string(raw), "Input encoding set to UTF-8", nil
	}
}

func decodeUTF16(raw []byte, order unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func printDiagnostics(diag *parser.Diagnostics) {
	for _, d := range diag.Entries() {
		if diag.Quiet && d.Severity != parser.SevError {
			continue
		}
		fmt.Fprintln(os.Stderr, d.String())
	}
}

// writeOutput dispatches to raw binary or Intel-HEX, overlaying an
// existing output file's other program slots when hex mode targets a
// single slot (spec.md §6).
func writeOutput(outfile string, image []byte, opts resolvedOptions) error {
	if opts.Binary {
		f, err := os.Create(outfile) // #nosec G304 -- user-supplied output path
		if err != nil {
			return err
		}
		defer f.Close()
		return ihex.WriteBinary(f, image)
	}

	base := 0
	if opts.programSlot != -1 {
		var err error
		base, err = ihex.SlotOffset(opts.programSlot)
		if err != nil {
			return err
		}
	}

	full, err := overlayExisting(outfile, image, base)
	if err != nil {
		return err
	}

	f, err := os.Create(outfile) // #nosec G304 -- user-supplied output path
	if err != nil {
		return err
	}
	defer f.Close()
	return ihex.WriteHex(f, full, 0)
}

// overlayExisting reads an existing hex output file (if any) and
// returns the full eight-slot image with image spliced in at base,
// preserving every other slot's previously written contents.
func overlayExisting(outfile string, image []byte, base int) ([]byte, error) {
	full := make([]byte, ihex.ImageSize)
	if existing, err := os.ReadFile(outfile); err == nil { // #nosec G304 -- user-supplied output path
		decoded, derr := ihex.ReadHex(bytes.NewReader(existing))
		if derr == nil {
			copy(full, decoded)
		}
	}
	copy(full[base:base+len(image)], image)
	return full, nil
}

func printHelp() {
	fmt.Printf(`fv1asm %s

Usage: fv1asm [options] <infile> <outfile>

Assembles a single FV-1 DSP source program into a 512-byte program
image, written as Intel-HEX (default) or raw binary.

Options:
  -version        Show version information
  -q              Suppress warnings
  -c              Clamp out-of-range operand values instead of erroring
  -s              SpinASM literal/missing-operand leniency
  -n              Don't chain-skip unused instruction space
  -p N            Target program slot 0-7 (hex output only)
  -b              Write raw binary output instead of Intel-HEX
  -config PATH    Load a config file instead of the platform default
  -error-limit N  Maximum error count before aborting

Exit codes: 0 success, -1 scan error, -2 parse error,
-3 errors present in input, -4 internal error.
`, Version)
}
