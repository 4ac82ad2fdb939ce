package patch

// Format identifies the on-disk dialect a patch was written in.
type Format int

const (
	// FormatUnknown means the detector could not commit to a dialect.
	FormatUnknown Format = iota
	// FormatUnified covers diff -u output, including the unified body of git diffs.
	FormatUnified
	// FormatContext covers diff -c output.
	FormatContext
	// FormatNormal covers plain diff output (ed-like a/c/d commands).
	FormatNormal
	// FormatGit marks a diff --git header while its extended directives are
	// being consumed. Produced patches are normalized to FormatUnified.
	FormatGit
)

func (f Format) String() string {
	switch f {
	case FormatUnified:
		return "unified"
	case FormatContext:
		return "context"
	case FormatNormal:
		return "normal"
	case FormatGit:
		return "git"
	default:
		return "unknown"
	}
}

// Operation is the file-level action a patch requests beyond editing lines.
type Operation int

const (
	// OpChange edits an existing file in place.
	OpChange Operation = iota
	// OpAdd creates the new-side file; the old side is absent or /dev/null.
	OpAdd
	// OpDelete removes the old-side file after its full content matched.
	OpDelete
	// OpRename moves the old path to the new path, applying any hunks on the way.
	OpRename
	// OpCopy duplicates the old path at the new path, applying any hunks.
	OpCopy
	// OpBinary marks a GIT binary patch; application is refused.
	OpBinary
)

func (o Operation) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	case OpCopy:
		return "copy"
	case OpBinary:
		return "binary"
	default:
		return "change"
	}
}
