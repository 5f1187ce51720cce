// Package export writes record sets to CSV files, database tables and
// object storage.
package export

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

const timestampLayout = "20060102_150405"

// CSVExporter writes one timestamped file per set.
type CSVExporter struct {
	Dir       string
	Separator rune
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewCSVExporter creates a CSVExporter. An empty separator means comma.
func NewCSVExporter(dir, separator string, logger *slog.Logger) *CSVExporter {
	sep := ','
	if r, _ := utf8.DecodeRuneInString(separator); r != utf8.RuneError {
		sep = r
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExporter{Dir: dir, Separator: sep, Now: time.Now, Logger: logger}
}

// Export writes set to <dir>/<prefix>_<timestamp>.csv and returns the path.
// Columns come from the first record. An existing file is never
// overwritten; a numeric suffix is added instead.
func (e *CSVExporter) Export(set *record.Set, prefix string) (string, error) {
	if set == nil || set.Len() == 0 {
		return "", errors.WrapError(fmt.Errorf("no records to export"), errors.ErrValidation, "csv export")
	}
	if prefix == "" {
		prefix = set.Resource
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", errors.WrapError(err, errors.ErrConfiguration, "create output directory")
	}

	f, path, err := e.create(prefix)
	if err != nil {
		return "", err
	}
	columns := set.Columns()
	werr := e.write(f, set, columns)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = errors.WrapError(cerr, errors.ErrValidation, "close csv")
	}
	if werr != nil {
		if rerr := os.Remove(path); rerr != nil {
			e.Logger.Warn("failed to remove partial csv", "path", path, "error", rerr)
		}
		return "", werr
	}

	e.Logger.Info("exported csv", "path", path, "records", set.Len(), "columns", len(columns))
	return path, nil
}

func (e *CSVExporter) write(out io.Writer, set *record.Set, columns []string) error {
	w := csv.NewWriter(out)
	w.Comma = e.Separator

	if err := w.Write(columns); err != nil {
		return errors.WrapError(err, errors.ErrValidation, "write csv header")
	}
	row := make([]string, len(columns))
	for _, rec := range set.Records {
		for i, v := range rec.Values(columns) {
			row[i] = transform.String(v)
		}
		if err := w.Write(row); err != nil {
			return errors.WrapError(err, errors.ErrValidation, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.WrapError(err, errors.ErrValidation, "flush csv")
	}
	return nil
}

func (e *CSVExporter) create(prefix string) (*os.File, string, error) {
	stamp := e.Now().Format(timestampLayout)
	for n := 0; n < 100; n++ {
		name := fmt.Sprintf("%s_%s.csv", prefix, stamp)
		if n > 0 {
			name = fmt.Sprintf("%s_%s_%d.csv", prefix, stamp, n)
		}
		path := filepath.Join(e.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !stderrors.Is(err, fs.ErrExist) {
			return nil, "", errors.WrapError(err, errors.ErrConfiguration, "create csv file")
		}
	}
	return nil, "", errors.WrapError(fmt.Errorf("too many files named %s_%s", prefix, stamp), errors.ErrConfiguration, "create csv file")
}
