package modgraph

import (
	"bufio"
	"io"
	"strings"
)

// CSVHeader is the fixed column order of the tabular export.
var CSVHeader = []string{"name", "description", "status", "version", "inputs", "outputs", "dependencies", "file_path"}

// ListSeparator joins list-valued fields in the export.
const ListSeparator = "; "

// WriteCSV writes modules in the tabular export format. A field is quoted
// only when it contains a comma, a double quote or a newline, with inner
// quotes doubled. Records end in "\n". An empty slice still writes the
// header.
func WriteCSV(w io.Writer, modules []Module) error {
	bw := bufio.NewWriter(w)
	writeRecord(bw, CSVHeader)
	for _, m := range modules {
		writeRecord(bw, []string{
			m.Name,
			m.Description,
			string(m.Status),
			m.Version,
			strings.Join(m.Inputs, ListSeparator),
			strings.Join(m.Outputs, ListSeparator),
			strings.Join(m.Dependencies, ListSeparator),
			m.FilePath,
		})
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(escapeField(field))
	}
	w.WriteByte('\n')
}

func escapeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportFiltered writes the store's current filtered projection as CSV.
func (s *Store) ExportFiltered(w io.Writer) error {
	return WriteCSV(w, s.Filtered())
}
