// Package cli is the command-line front end: it resolves configuration,
// parses patch(1)-style flags, runs the patch stream through the parser and
// applier, and turns the outcome into a POSIX exit code.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/asynkron/gopatch/internal/config"
	"github.com/asynkron/gopatch/internal/prompt"
	"github.com/asynkron/gopatch/pkg/patch"
)

// Version is stamped by the release build; "dev" marks a source build.
var Version = "dev"

// Run executes one patch run over the provided CLI arguments. It returns a
// POSIX-style exit code: 0 when every hunk applied, 1 when some hunks were
// rejected or patches skipped, 2 on unrecoverable errors. A fatal error on
// one patch of a multi-patch stream does not stop the later ones, but the
// exit code stays 2.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return 2
		}
	}

	// The config file has to be found before flag parsing because it seeds
	// the flag defaults, so --config is pre-scanned from the raw arguments.
	cfg, err := config.Resolve(configArg(args))
	if err != nil {
		fmt.Fprintf(stderr, "gopatch: %v\n", err)
		return 2
	}

	debugDefault := cfg.Output.Debug
	if os.Getenv("GOPATCH_DEBUG") == "1" {
		debugDefault = true
	}

	flagSet := flag.NewFlagSet("gopatch", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, "usage: gopatch [options] [origfile [patchfile]]")
		flagSet.PrintDefaults()
	}

	var (
		strip        = flagSet.Int("strip", cfg.Defaults.Strip, "strip this many leading path components from file names; -1 guesses")
		input        = flagSet.String("input", "", "read the patch from this file instead of standard input")
		output       = flagSet.String("output", "", "write the patched result here instead of in place")
		reverse      = flagSet.Bool("reverse", false, "assume the patch was created with old and new files swapped")
		forward      = flagSet.Bool("forward", false, "ignore patches that appear reversed or already applied")
		fuzz         = flagSet.Int("fuzz", cfg.Defaults.Fuzz, "maximum context lines to discount when a hunk does not match")
		ignoreWS     = flagSet.Bool("ignore-whitespace", false, "compare lines with their whitespace removed")
		force        = flagSet.Bool("force", false, "never ask questions; assume patches are not reversed")
		batch        = flagSet.Bool("batch", false, "never ask questions; take the cautious answer")
		quiet        = flagSet.Bool("quiet", cfg.Output.Quiet, "only report errors")
		backup       = flagSet.Bool("backup", cfg.Defaults.Backup, "save the original of each file as FILE"+cfg.Defaults.BackupSuffix)
		directory    = flagSet.String("directory", "", "change to this directory before doing anything")
		removeEmpty  = flagSet.Bool("remove-empty-files", cfg.Defaults.RemoveEmptyFiles, "remove output files that are empty after patching")
		rejectFile   = flagSet.String("reject-file", "", "write rejects to this file instead of TARGET.rej")
		rejectFormat = flagSet.String("reject-format", cfg.Defaults.RejectFormat, "write rejects as \"unified\" or \"context\" regardless of the input format")
		dryRun       = flagSet.Bool("dry-run", false, "print the results of applying the patches without changing any files")
		verbose      = flagSet.Bool("verbose", cfg.Output.Verbose, "report every hunk, not just the surprising ones")
		debug        = flagSet.Bool("debug", debugDefault, "write structured debug logging to standard error")
		version      = flagSet.Bool("version", false, "print the version and exit")
		reportPath   = flagSet.String("report", "", "write a JSON summary of the run to this file")
	)
	flagSet.String("config", "", "read settings from this YAML file")

	flagSet.IntVar(strip, "p", cfg.Defaults.Strip, "shorthand for --strip")
	flagSet.StringVar(input, "i", "", "shorthand for --input")
	flagSet.StringVar(output, "o", "", "shorthand for --output")
	flagSet.BoolVar(reverse, "R", false, "shorthand for --reverse")
	flagSet.BoolVar(forward, "N", false, "shorthand for --forward")
	flagSet.IntVar(fuzz, "F", cfg.Defaults.Fuzz, "shorthand for --fuzz")
	flagSet.BoolVar(ignoreWS, "l", false, "shorthand for --ignore-whitespace")
	flagSet.BoolVar(force, "f", false, "shorthand for --force")
	flagSet.BoolVar(batch, "t", false, "shorthand for --batch")
	flagSet.BoolVar(quiet, "s", cfg.Output.Quiet, "shorthand for --quiet")
	flagSet.BoolVar(quiet, "silent", cfg.Output.Quiet, "same as --quiet")
	flagSet.BoolVar(backup, "b", cfg.Defaults.Backup, "shorthand for --backup")
	flagSet.StringVar(directory, "d", "", "shorthand for --directory")
	flagSet.BoolVar(removeEmpty, "E", cfg.Defaults.RemoveEmptyFiles, "shorthand for --remove-empty-files")
	flagSet.StringVar(rejectFile, "r", "", "shorthand for --reject-file")
	flagSet.BoolVar(version, "v", false, "shorthand for --version")

	if err := flagSet.Parse(expandArgs(flagSet, args)); err != nil {
		return 2
	}

	if *version {
		fmt.Fprintln(stdout, "gopatch "+Version)
		return 0
	}

	operands := flagSet.Args()
	targetFile := ""
	switch len(operands) {
	case 0:
	case 1:
		targetFile = operands[0]
	case 2:
		targetFile = operands[0]
		if *input == "" {
			*input = operands[1]
		}
	default:
		fmt.Fprintf(stderr, "gopatch: extra operand %q\n", operands[2])
		flagSet.Usage()
		return 2
	}

	rejFormat, err := parseRejectFormat(*rejectFormat)
	if err != nil {
		fmt.Fprintf(stderr, "gopatch: %v\n", err)
		return 2
	}

	if *directory != "" {
		prev, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(stderr, "gopatch: %v\n", err)
			return 2
		}
		if err := os.Chdir(*directory); err != nil {
			fmt.Fprintf(stderr, "gopatch: %v\n", err)
			return 2
		}
		defer func() { _ = os.Chdir(prev) }()
	}

	in := stdin
	if *input != "" && *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(stderr, "gopatch: **** %v\n", err)
			return 2
		}
		defer f.Close()
		in = f
	}

	rep := patch.NewReporter(stdout)
	rep.Verbose = *verbose
	rep.Quiet = *quiet

	term := prompt.New(stdout)
	defer term.Close()

	var logger patch.Logger
	if *debug {
		logger = patch.NewStdLogger(patch.LogLevelDebug, stderr)
	}

	opts := &patch.Options{
		Strip:            *strip,
		Reverse:          *reverse,
		Forward:          *forward,
		DryRun:           *dryRun,
		MaxFuzz:          patch.LineNumber(*fuzz),
		RejectFile:       *rejectFile,
		RejectFormat:     rejFormat,
		RemoveEmptyFiles: *removeEmpty,
		Backup:           *backup,
		BackupSuffix:     cfg.Defaults.BackupSuffix,
		OutputFile:       *output,
		TargetFile:       targetFile,
		IgnoreWhitespace: *ignoreWS,
		Force:            *force,
		Batch:            *batch,
		Reporter:         rep,
		Prompter:         term,
		Logger:           logger,
	}

	applier, err := patch.NewApplier(opts)
	if err != nil {
		fmt.Fprintf(stderr, "gopatch: %v\n", err)
		return 2
	}
	parser := patch.NewParser(in, opts)

	exit := 0
	var summary patch.RunSummary
	for {
		p, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(stderr, "gopatch: **** %v\n", err)
			exit = 2
			continue
		}
		res, err := applier.Apply(ctx, p)
		if err != nil {
			fmt.Fprintf(stderr, "gopatch: **** %v\n", err)
			if ctx.Err() != nil {
				return 2
			}
			exit = 2
			continue
		}
		summary.Add(res)
		if (res.Rejected > 0 || res.Skipped) && exit == 0 {
			exit = 1
		}
	}
	if parser.TrailingGarbage() {
		rep.TrailingGarbage()
	}

	if *reportPath != "" {
		summary.ExitCode = exit
		if err := writeReport(*reportPath, &summary); err != nil {
			fmt.Fprintf(stderr, "gopatch: %v\n", err)
			if exit < 2 {
				exit = 2
			}
		}
	}
	return exit
}

// configArg pre-scans the raw arguments for --config. The flag set still
// declares the flag so Parse accepts it later.
func configArg(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if arg == "--config" || arg == "-config" {
			if i+1 < len(args) {
				return args[i+1]
			}
			break
		}
		for _, prefix := range []string{"--config=", "-config="} {
			if strings.HasPrefix(arg, prefix) {
				return strings.TrimPrefix(arg, prefix)
			}
		}
	}
	return ""
}

func parseRejectFormat(value string) (patch.Format, error) {
	switch value {
	case "":
		return patch.FormatUnknown, nil
	case "unified":
		return patch.FormatUnified, nil
	case "context":
		return patch.FormatContext, nil
	default:
		return patch.FormatUnknown, fmt.Errorf("unsupported reject format %q", value)
	}
}

// valueShorts are the single-letter options whose argument may be joined to
// the letter the way patch(1) allows, as in "-p1".
var valueShorts = map[string]bool{"p": true, "i": true, "o": true, "F": true, "d": true, "r": true}

// expandArgs splits joined short options ("-p1", "-tp2") into the separate
// tokens the flag package understands. Registered names, long options and
// everything after "--" pass through untouched.
func expandArgs(flagSet *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' {
			out = append(out, arg)
			continue
		}
		body := arg[1:]
		name := body
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		if flagSet.Lookup(name) != nil {
			out = append(out, arg)
			continue
		}
		toks, ok := splitShorts(flagSet, body)
		if !ok {
			out = append(out, arg)
			continue
		}
		out = append(out, toks...)
	}
	return out
}

func splitShorts(flagSet *flag.FlagSet, body string) ([]string, bool) {
	var toks []string
	for i := 0; i < len(body); i++ {
		letter := string(body[i])
		if flagSet.Lookup(letter) == nil {
			return nil, false
		}
		toks = append(toks, "-"+letter)
		if valueShorts[letter] {
			if rest := body[i+1:]; rest != "" {
				toks = append(toks, rest)
			}
			return toks, true
		}
	}
	return toks, true
}
