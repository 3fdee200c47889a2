package menuitems

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

var allowedExt = map[string]bool{
	".csv":  true,
	".json": true,
}

func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" {
		return errors.New("file extension missing")
	}

	if !allowedExt[ext] {
		return errors.New("file type not allowed")
	}

	return nil
}

// ParseImport reads a menu file. CSV needs a header row naming at least
// "name"; JSON is an array of Input objects.
func ParseImport(filename string, r io.Reader) ([]Input, error) {
	if err := ValidateFileExtension(filename); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(filename), ".json") {
		var in []Input
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return nil, fmt.Errorf("invalid menu json: %w", err)
		}
		return in, nil
	}
	return parseCSV(r)
}

func parseCSV(r io.Reader) ([]Input, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("menu csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, errors.New(`menu csv needs a "name" column`)
	}

	field := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []Input
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("menu csv line %d: %w", line, err)
		}

		in := Input{
			Name:        field(rec, "name"),
			Category:    field(rec, "category"),
			MenuType:    field(rec, "menu_type"),
			Description: field(rec, "description"),
		}
		if raw := field(rec, "price"); raw != "" {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("menu csv line %d: invalid price %q", line, raw)
			}
			in.Price = price
		}
		out = append(out, in)
	}
	return out, nil
}
