package patch

import (
	"context"
	"io"
)

// DefaultMaxFuzz is the fuzz factor patch(1) uses when none is given.
const DefaultMaxFuzz LineNumber = 2

// Prompter answers the questions a patch run may need to ask: a replacement
// target path, or yes/no confirmations such as "Assume -R?". Implementations
// that cannot reach a user should return the defaults, which is what the
// built-in non-interactive prompter does.
type Prompter interface {
	// AskPath requests a file path. An empty answer means "no answer".
	AskPath(ctx context.Context, prompt string) (string, error)
	// Confirm asks a yes/no question and returns the chosen answer.
	Confirm(ctx context.Context, prompt string, def bool) (bool, error)
}

// nonInteractivePrompter declines every question with its default answer.
type nonInteractivePrompter struct{}

func (nonInteractivePrompter) AskPath(context.Context, string) (string, error) {
	return "", nil
}

func (nonInteractivePrompter) Confirm(_ context.Context, _ string, def bool) (bool, error) {
	return def, nil
}

// Options configures parsing and application. The zero value is usable:
// strip 0, no fuzz, quiet machinery with all collaborators defaulted. The
// command-line front end layers patch(1)'s traditional defaults (strip -1,
// fuzz 2) on top via flags.
type Options struct {
	// Strip is the number of leading path components removed from header
	// paths. -1 selects the smallest count that names an existing file,
	// falling back to the basename.
	Strip int
	// Reverse applies patches old-to-new swapped, undoing a previous run.
	Reverse bool
	// Forward ignores patches that appear reversed or already applied.
	Forward bool
	// DryRun reports what would happen without touching the filesystem.
	DryRun bool
	// MaxFuzz caps how many context lines may be discounted per hunk end.
	MaxFuzz LineNumber
	// RejectFile overrides the per-target "<target>.rej" sidecar path.
	RejectFile string
	// RejectFormat forces rejects into FormatUnified or FormatContext.
	// FormatUnknown mirrors the input format.
	RejectFormat Format
	// RemoveEmptyFiles unlinks targets that are empty after patching.
	RemoveEmptyFiles bool
	// Backup saves the pre-image as "<target><BackupSuffix>" before writing.
	Backup bool
	// BackupSuffix defaults to ".orig".
	BackupSuffix string
	// OutputFile redirects the patched result instead of editing in place.
	OutputFile string
	// TargetFile forces the file to patch, bypassing header-based selection.
	TargetFile string
	// IgnoreWhitespace matches lines with all whitespace removed.
	IgnoreWhitespace bool
	// Force suppresses questions and pushes on: missing targets are
	// skipped, reversal detection is bypassed, prerequisite mismatches
	// only warn.
	Force bool
	// Batch suppresses questions with the cautious answers: missing
	// targets and prerequisite mismatches skip the patch, and a patch
	// that looks reversed is applied as if -R were given.
	Batch bool

	// FileSystem is the storage the applier edits. Defaults to the real one.
	FileSystem FileSystem
	// Prompter supplies answers for interactive questions.
	Prompter Prompter
	// Reporter receives the user-visible status stream.
	Reporter *Reporter
	// Logger receives structured diagnostics.
	Logger Logger
}

func (o *Options) setDefaults() {
	if o.BackupSuffix == "" {
		o.BackupSuffix = ".orig"
	}
	if o.FileSystem == nil {
		o.FileSystem = NewOSFileSystem()
	}
	if o.Prompter == nil {
		o.Prompter = nonInteractivePrompter{}
	}
	if o.Reporter == nil {
		o.Reporter = NewReporter(io.Discard)
	}
	if o.Logger == nil {
		o.Logger = &NoOpLogger{}
	}
}

func (o *Options) validate() error {
	if o.Strip < -1 {
		return configError("strip count %d is not a non-negative number", o.Strip)
	}
	if o.MaxFuzz < 0 {
		return configError("fuzz factor %d is not a non-negative number", o.MaxFuzz)
	}
	switch o.RejectFormat {
	case FormatUnknown, FormatUnified, FormatContext:
	default:
		return configError("unsupported reject format %q", o.RejectFormat)
	}
	return nil
}
