// Package dataset loads raw rows from a dataset provider and flattens them
// into one ordered sequence.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"ulama/internal/config"
	"ulama/internal/logger"
	"ulama/internal/models"
)

// Load errors.
var (
	ErrMissingDataset       = errors.New("dataset identifier is required")
	ErrDatasetNotFound      = errors.New("dataset not found or not accessible")
	ErrSubsetNotFound       = errors.New("subset not found")
	ErrSplitNotFound        = errors.New("split not found")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrUnsupportedFormat    = errors.New("unsupported dataset file format")
	ErrMalformedRecord      = errors.New("malformed record")
)

// DefaultSplit names the only split of a flat collection.
const DefaultSplit = "train"

// Loader retrieves every row of a dataset. A non-empty split restricts the
// result to that split. Rows come back split by split in provider order.
type Loader interface {
	Load(ctx context.Context, split string) ([]models.RawRecord, error)
}

// Split is one named group of rows.
type Split struct {
	Name string
	Rows []models.RawRecord
}

// LoadError wraps any failure to resolve or read a dataset.
type LoadError struct {
	Dataset string
	Split   string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Split != "" {
		return fmt.Sprintf("failed to load dataset %q (split %q): %v", e.Dataset, e.Split, e.Err)
	}

	return fmt.Sprintf("failed to load dataset %q: %v", e.Dataset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options configures the loaders built by Open.
type Options struct {
	Endpoint   string
	Token      string
	Subset     string
	PageSize   int
	Retry      config.RetryPolicy
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// OptionsFromConfig copies the hub and retry settings out of cfg.
func OptionsFromConfig(cfg *config.Config, log *logger.Logger) Options {
	return Options{
		Endpoint: cfg.Hub.Endpoint,
		Token:    cfg.Hub.Token,
		Subset:   cfg.Hub.Subset,
		PageSize: cfg.Hub.PageSize,
		Retry:    cfg.Retry,
		Logger:   log,
	}
}

// Open picks a loader for ref: an existing local path is read from disk,
// anything else is treated as a hub dataset identifier.
func Open(ref string, opts Options) (Loader, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrMissingDataset
	}

	if _, err := os.Stat(ref); err == nil {
		return NewFileLoader(ref), nil
	}

	return NewHubLoader(ref, opts), nil
}

// Flatten concatenates the rows of splits in order.
func Flatten(splits []Split) []models.RawRecord {
	total := 0
	for _, s := range splits {
		total += len(s.Rows)
	}

	rows := make([]models.RawRecord, 0, total)
	for _, s := range splits {
		rows = append(rows, s.Rows...)
	}

	return rows
}

// selectSplits keeps only the split called name, or every split when name is
// empty.
func selectSplits(splits []Split, name string) ([]Split, error) {
	if name == "" {
		return splits, nil
	}

	names := make([]string, 0, len(splits))

	for _, s := range splits {
		if s.Name == name {
			return []Split{s}, nil
		}

		names = append(names, s.Name)
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrSplitNotFound, name, strings.Join(names, ", "))
}
