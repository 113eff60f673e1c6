package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Problem describes one migration file that goose would reject or
// mis-order.
type Problem struct {
	File   string
	Reason string
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.File, p.Reason)
}

// Lint checks every .sql file in fsys: timestamped names, unique versions
// and both goose annotations. All problems are reported together.
func Lint(fsys fs.FS) error {
	if fsys == nil {
		fsys = Migrations()
	}
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	var errs error
	owners := make(map[string]string, len(files))
	for _, file := range files {
		match := migrationName.FindStringSubmatch(file)
		if match == nil {
			errs = multierr.Append(errs, Problem{File: file, Reason: "name must look like YYYYMMDDHHMMSS_snake_name.sql"})
			continue
		}
		if first, dup := owners[match[1]]; dup {
			errs = multierr.Append(errs, Problem{File: file, Reason: "version already used by " + first})
		} else {
			owners[match[1]] = file
		}

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %s: %w", file, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				errs = multierr.Append(errs, Problem{File: file, Reason: "missing " + marker})
			}
		}
	}
	return errs
}
