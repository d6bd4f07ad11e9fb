// Package export writes the records of a discovery run to CSV files.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"jobmate/discovery/internal/model"
)

// Columns is the header row of every export.
var Columns = []string{
	"title", "company", "location", "posted_date", "source_url",
	"description", "seniority_level", "employment_type", "job_function", "industries",
	"applied", "hidden", "interview", "rejected", "starred",
}

// CSVExporter overwrites <dir>/<table>.csv with the records of the latest run.
type CSVExporter struct {
	dir          string
	acceptedFile string
	filteredFile string
}

// NewCSVExporter writes one file per table into dir, creating it if needed.
func NewCSVExporter(dir, acceptedTable, filteredTable string) *CSVExporter {
	return &CSVExporter{
		dir:          dir,
		acceptedFile: filepath.Join(dir, acceptedTable+".csv"),
		filteredFile: filepath.Join(dir, filteredTable+".csv"),
	}
}

// Export writes both files.
func (e *CSVExporter) Export(accepted, filtered []model.JobRecord) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create export dir %s", e.dir)
	}
	if err := writeFile(e.acceptedFile, accepted); err != nil {
		return err
	}
	return writeFile(e.filteredFile, filtered)
}

func writeFile(path string, records []model.JobRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return errors.Wrapf(err, "write header of %s", path)
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flush %s", path)
	}
	return f.Close()
}

func row(r model.JobRecord) []string {
	return []string{
		r.Title, r.Company, r.Location, r.PostedDate, r.SourceURL,
		r.Description, r.SeniorityLevel, r.EmploymentType, r.JobFunction, r.Industries,
		flag(r.Applied), flag(r.Hidden), flag(r.Interview), flag(r.Rejected), flag(r.Starred),
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
