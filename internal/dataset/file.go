package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"ulama/internal/models"
)

// FileLoader reads a dataset from a local file or a directory of files.
//
// A directory is a collection of splits, one per supported file, named by
// the file stem. A single file is either flat (one split named
// DefaultSplit) or, for JSON and YAML, a mapping of split name to rows.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads every split under the loader's path.
func (f *FileLoader) Load(ctx context.Context, split string) ([]models.RawRecord, error) {
	wrap := func(err error) error {
		return &LoadError{Dataset: f.path, Split: split, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, wrap(err)
	}

	splits, err := f.Splits()
	if err != nil {
		return nil, wrap(err)
	}

	selected, err := selectSplits(splits, split)
	if err != nil {
		return nil, wrap(err)
	}

	return Flatten(selected), nil
}

// Splits reads the path and returns its splits in order.
func (f *FileLoader) Splits() ([]Split, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, f.path)
		}

		return nil, err
	}

	if !info.IsDir() {
		return readFile(f.path)
	}

	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", f.path, err)
	}

	var splits []Split

	// os.ReadDir returns entries sorted by filename.
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !supported(name) {
			continue
		}

		fileSplits, err := readFile(filepath.Join(f.path, name))
		if err != nil {
			return nil, err
		}

		splits = append(splits, Split{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Rows: Flatten(fileSplits),
		})
	}

	if len(splits) == 0 {
		return nil, fmt.Errorf("%w: no dataset files in %s", ErrDatasetNotFound, f.path)
	}

	return splits, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl", ".ndjson", ".csv", ".yaml", ".yml":
		return true
	}

	return false
}

func readFile(path string) ([]Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file %s: %w", path, err)
	}

	var splits []Split

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		splits, err = decodeJSON(data)
	case ".jsonl", ".ndjson":
		splits, err = decodeJSONLines(data)
	case ".csv":
		splits, err = decodeCSV(data)
	case ".yaml", ".yml":
		splits, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return splits, nil
}

func flat(rows []models.RawRecord) []Split {
	if rows == nil {
		rows = []models.RawRecord{}
	}

	return []Split{{Name: DefaultSplit, Rows: rows}}
}

// decodeJSON accepts an array of objects or an object mapping split names to
// arrays of objects.
func decodeJSON(data []byte) ([]Split, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedRecord)
	}

	switch trimmed[0] {
	case '[':
		var rows []models.RawRecord
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}

		return flat(rows), nil
	case '{':
		// The top-level record only supplies split order; rows are decoded
		// again below so their own field order is kept.
		top, err := models.ParseRawRecord(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}

		var grouped map[string][]models.RawRecord
		if err := json.Unmarshal(trimmed, &grouped); err != nil {
			return nil, fmt.Errorf("%w: top-level object must map split names to arrays of objects: %v", ErrMalformedRecord, err)
		}

		splits := make([]Split, 0, top.Len())
		for _, name := range top.Keys() {
			rows := grouped[name]
			if rows == nil {
				rows = []models.RawRecord{}
			}

			splits = append(splits, Split{Name: name, Rows: rows})
		}

		return splits, nil
	}

	return nil, fmt.Errorf("%w: expected a JSON array or object", ErrUnsupportedFormat)
}

func decodeJSONLines(data []byte) ([]Split, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []models.RawRecord

	line := 0
	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		row, err := models.ParseRawRecord(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan lines: %w", err)
	}

	return flat(rows), nil
}

// decodeCSV maps each row onto the header. Short rows get nil for the
// missing cells; long rows are rejected.
func decodeCSV(data []byte) ([]Split, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return flat(nil), nil
		}

		return nil, fmt.Errorf("%w: header: %v", ErrMalformedRecord, err)
	}

	var rows []models.RawRecord

	for line := 2; ; line++ {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, line, err)
		}

		if len(cells) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrMalformedRecord, line, len(cells), len(header))
		}

		var row models.RawRecord

		for i, col := range header {
			if i < len(cells) {
				row.Set(col, cells[i])
			} else {
				row.Set(col, nil)
			}
		}

		rows = append(rows, row)
	}

	return flat(rows), nil
}

// decodeYAML accepts a sequence of mappings or a mapping of split names to
// sequences of mappings.
func decodeYAML(data []byte) ([]Split, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if len(doc.Content) == 0 {
		return flat(nil), nil
	}

	root := doc.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		rows, err := yamlRows(root)
		if err != nil {
			return nil, err
		}

		return flat(rows), nil
	case yaml.MappingNode:
		splits := make([]Split, 0, len(root.Content)/2)

		for i := 0; i+1 < len(root.Content); i += 2 {
			name := root.Content[i].Value
			value := root.Content[i+1]

			if value.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: split %q is not a sequence", ErrMalformedRecord, name)
			}

			rows, err := yamlRows(value)
			if err != nil {
				return nil, fmt.Errorf("split %q: %w", name, err)
			}

			splits = append(splits, Split{Name: name, Rows: rows})
		}

		return splits, nil
	}

	return nil, fmt.Errorf("%w: expected a YAML sequence or mapping", ErrUnsupportedFormat)
}

func yamlRows(seq *yaml.Node) ([]models.RawRecord, error) {
	rows := make([]models.RawRecord, 0, len(seq.Content))

	for i, item := range seq.Content {
		if item.Kind == yaml.AliasNode && item.Alias != nil {
			item = item.Alias
		}

		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: item %d is not a mapping", ErrMalformedRecord, i)
		}

		var row models.RawRecord

		for j := 0; j+1 < len(item.Content); j += 2 {
			var v any
			if err := item.Content[j+1].Decode(&v); err != nil {
				return nil, fmt.Errorf("%w: item %d field %q: %v", ErrMalformedRecord, i, item.Content[j].Value, err)
			}

			row.Set(item.Content[j].Value, v)
		}

		rows = append(rows, row)
	}

	return rows, nil
}
