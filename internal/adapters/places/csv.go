package places

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// Load reads a semicolon-separated "name;region" file with a header line.
func Load(path string) ([]domain.Place, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open places: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// Parse reads places from r. Rows with fewer than two fields or an empty
// name are skipped.
func Parse(r io.Reader) ([]domain.Place, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		out    []domain.Place
		header = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse places: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 2 {
			continue
		}
		name := strings.TrimSpace(rec[0])
		if name == "" {
			continue
		}
		out = append(out, domain.Place{Name: name, Region: strings.TrimSpace(rec[1])})
	}
	return out, nil
}
