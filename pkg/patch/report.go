package patch

import (
	"fmt"
	"io"
)

// Reporter renders the user-visible status stream. The wording is pinned to
// the classic tool's output, scripts grep for these strings, so nothing
// here goes through the Logger.
type Reporter struct {
	out io.Writer
	// Verbose also announces hunks that applied exactly where expected.
	Verbose bool
	// Quiet drops informational chatter, keeping failures and summaries.
	Quiet bool
}

// NewReporter returns a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// say prints informational output, which -s suppresses.
func (r *Reporter) say(format string, args ...any) {
	if r.Quiet {
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

// notice prints output that survives -s: failures and their summaries.
func (r *Reporter) notice(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

const prologueDashes = "--------------------------"

func (r *Reporter) prologueBlock(info *HeaderInfo) {
	if len(info.Prologue) == 0 {
		return
	}
	fmt.Fprintf(r.out, "The text leading up to this was:\n%s\n", prologueDashes)
	for _, line := range info.Prologue {
		fmt.Fprintf(r.out, "|%s\n", line)
	}
	fmt.Fprintf(r.out, "%s\n", prologueDashes)
}

// FormatDetected announces what the detector concluded and echoes the text
// leading up to the patch. Verbose only, like the original.
func (r *Reporter) FormatDetected(info *HeaderInfo) {
	if !r.Verbose || r.Quiet || info.Format == FormatUnknown {
		return
	}
	fmt.Fprintf(r.out, "Hmm...  Looks like a %s diff to me...\n", info.Format)
	r.prologueBlock(info)
}

// PatchingFile announces the target. Exactly one of readFrom, renamedFrom
// and copiedFrom may qualify the line.
func (r *Reporter) PatchingFile(path string, dryRun bool, readFrom, renamedFrom, copiedFrom string) {
	verb := "patching"
	if dryRun {
		verb = "checking"
	}
	switch {
	case readFrom != "":
		r.say("%s file %s (read from %s)\n", verb, path, readFrom)
	case renamedFrom != "":
		r.say("%s file %s (renamed from %s)\n", verb, path, renamedFrom)
	case copiedFrom != "":
		r.say("%s file %s (copied from %s)\n", verb, path, copiedFrom)
	default:
		r.say("%s file %s\n", verb, path)
	}
}

// HunkSucceeded reports an applied hunk. Perfect landings stay quiet unless
// Verbose; any offset or fuzz is always worth a line.
func (r *Reporter) HunkSucceeded(res HunkResult) {
	if res.Offset == 0 && res.Fuzz == 0 && !r.Verbose {
		return
	}
	msg := fmt.Sprintf("Hunk #%d succeeded at %d", res.Number, res.Line)
	if res.Fuzz > 0 {
		msg += fmt.Sprintf(" with fuzz %d", res.Fuzz)
	}
	if res.Offset != 0 {
		plural := "s"
		if res.Offset == 1 || res.Offset == -1 {
			plural = ""
		}
		msg += fmt.Sprintf(" (offset %d line%s)", res.Offset, plural)
	}
	r.say("%s.\n", msg)
}

// HunkFailed reports a rejected hunk; it prints even under -s.
func (r *Reporter) HunkFailed(number int, line LineNumber) {
	r.notice("Hunk #%d FAILED at %d.\n", number, line)
}

func hunkNoun(n int) string {
	if n == 1 {
		return "hunk"
	}
	return "hunks"
}

// RejectSummary reports how many hunks failed and where the rejects went.
// rejectPath may be empty on a dry run that has nothing to save.
func (r *Reporter) RejectSummary(failed, total int, rejectPath string) {
	r.notice("%d out of %d %s FAILED -- saving rejects to file %s\n",
		failed, total, hunkNoun(total), rejectPath)
}

// IgnoredSummary reports hunks skipped wholesale, for example when the
// target could not be found.
func (r *Reporter) IgnoredSummary(ignored, total int, rejectPath string) {
	if rejectPath != "" {
		r.notice("%d out of %d %s ignored -- saving rejects to file %s\n",
			ignored, total, hunkNoun(total), rejectPath)
		return
	}
	r.notice("%d out of %d %s ignored\n", ignored, total, hunkNoun(total))
}

// SkippingPatch announces that the current patch is being passed over.
func (r *Reporter) SkippingPatch() {
	r.notice("Skipping patch.\n")
}

// MissingFile explains that no target could be located, echoing the header
// so the user can see what the patch was aiming at.
func (r *Reporter) MissingFile(info *HeaderInfo, stripGiven bool) {
	r.notice("can't find file to patch at input line %d\n", info.BodyLine)
	if stripGiven {
		r.notice("Perhaps you used the wrong -p or --strip option?\n")
	} else {
		r.notice("Perhaps you should have used the -p or --strip option?\n")
	}
	r.prologueBlock(info)
}

// ReversedDetected reports the -N outcome for a patch that appears to be
// applied already.
func (r *Reporter) ReversedDetected() {
	r.notice("Reversed (or previously applied) patch detected!  Skipping patch.\n")
}

// AssumingReverse reports the -t outcome, flipping the patch without asking.
func (r *Reporter) AssumingReverse() {
	r.notice("Reversed (or previously applied) patch detected!  Assuming -R.\n")
}

// AlreadyExists reports a creation aimed at a file that is already there.
func (r *Reporter) AlreadyExists(path string) {
	r.notice("The next patch would create the file %s,\nwhich already exists!\n", path)
}

// NotDeleting reports a deletion patch that left content behind, so the
// target stays on disk.
func (r *Reporter) NotDeleting(path string) {
	r.notice("Not deleting file %s as content differs from patch\n", path)
}

// PrereqMismatch warns that the Prereq token was not found when the run
// continues anyway.
func (r *Reporter) PrereqMismatch(prereq string) {
	r.say("This file doesn't appear to be the %s version--patching anyway.\n", prereq)
}

// TrailingGarbage notes unparseable text after the last patch.
func (r *Reporter) TrailingGarbage() {
	r.say("Hmm...  Ignoring the trailing garbage.\n")
}

// RunSummary is the machine-readable account of a whole run, written by the
// command line front end when --report is given.
type RunSummary struct {
	Files    []FileSummary `json:"files"`
	Failed   int           `json:"failed"`
	ExitCode int           `json:"exitCode"`
}

// FileSummary mirrors one FileResult.
type FileSummary struct {
	Path     string       `json:"path"`
	Hunks    []HunkResult `json:"hunks"`
	Rejected int          `json:"rejected"`
	Skipped  bool         `json:"skipped"`
}

// Add folds one patch's outcome into the summary.
func (s *RunSummary) Add(res *FileResult) {
	if res == nil {
		return
	}
	s.Files = append(s.Files, FileSummary{
		Path:     res.Path,
		Hunks:    res.Hunks,
		Rejected: res.Rejected,
		Skipped:  res.Skipped,
	})
	s.Failed += res.Rejected
}
