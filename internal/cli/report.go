package cli

import (
	"encoding/json"
	"os"

	"github.com/asynkron/gopatch/pkg/patch"
)

// writeReport persists the JSON run summary. Nil slices are pinned to empty
// ones so the report always carries arrays, never null.
func writeReport(path string, summary *patch.RunSummary) error {
	if summary.Files == nil {
		summary.Files = []patch.FileSummary{}
	}
	for i := range summary.Files {
		if summary.Files[i].Hunks == nil {
			summary.Files[i].Hunks = []patch.HunkResult{}
		}
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
