package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"docsort/internal/logging"
)

// notebook mirrors the subset of the .ipynb JSON envelope we read.
type notebook struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	Source json.RawMessage `json:"source"`
}

// readNotebook pulls cell sources (code and markdown alike) out of a Jupyter
// notebook, up to the configured line cap.
func (d *Dispatcher) readNotebook(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Error("extraction failed",
			logging.String(logging.FieldFile, filepath.Base(path)),
			logging.Error(err))
		return ""
	}

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		d.logger.Error("notebook parse failed",
			logging.String(logging.FieldFile, filepath.Base(path)),
			logging.Error(err))
		return ""
	}

	var b strings.Builder
	total := 0
	for _, cell := range nb.Cells {
		for _, line := range cellLines(cell.Source) {
			if total >= d.maxLines {
				return b.String()
			}
			if total > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.TrimRight(line, "\n"))
			total++
		}
	}
	return b.String()
}

// cellLines handles both source encodings the notebook format allows:
// a list of line strings or one joined string.
func cellLines(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return strings.Split(joined, "\n")
	}
	return nil
}
