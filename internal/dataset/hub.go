package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ulama/internal/config"
	"ulama/internal/logger"
	"ulama/internal/models"
	"ulama/pkg/utils"
)

const (
	maxResponseSize = 64 * 1024 * 1024
	maxErrorBody    = 512
)

// HubLoader reads a dataset through the Hugging Face dataset viewer API.
type HubLoader struct {
	client   *http.Client
	headers  http.Header
	logger   *logger.Logger
	retry    config.RetryPolicy
	dataset  string
	endpoint string
	subset   string
	pageSize int
}

// splitEntry is one item of the /splits listing.
type splitEntry struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
}

type splitsResponse struct {
	Splits []splitEntry `json:"splits"`
}

type rowItem struct {
	RowIdx int              `json:"row_idx"`
	Row    models.RawRecord `json:"row"`
}

type rowsResponse struct {
	Rows         []rowItem `json:"rows"`
	NumRowsTotal int       `json:"num_rows_total"`
}

type hubError struct {
	Error string `json:"error"`
}

// NewHubLoader creates a loader for the hub dataset id. Zero-valued options
// fall back to config.Default.
func NewHubLoader(id string, opts Options) *HubLoader {
	def := config.Default()

	if opts.Endpoint == "" {
		opts.Endpoint = def.Hub.Endpoint
	}

	if opts.PageSize < 1 || opts.PageSize > config.MaxPageSize {
		opts.PageSize = def.Hub.PageSize
	}

	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = def.Retry
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Retry.GetTimeout()}
	}

	return &HubLoader{
		client:   client,
		headers:  utils.NewHTTPHelper().BuildHeaders(opts.Token, nil),
		logger:   opts.Logger.With("dataset", id),
		retry:    opts.Retry,
		dataset:  id,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		subset:   opts.Subset,
		pageSize: opts.PageSize,
	}
}

// Load lists the splits of the dataset, picks the subset, then pages through
// every selected split.
func (h *HubLoader) Load(ctx context.Context, split string) ([]models.RawRecord, error) {
	wrap := func(err error) error {
		return &LoadError{Dataset: h.dataset, Split: split, Err: err}
	}

	entries, err := h.listSplits(ctx)
	if err != nil {
		return nil, wrap(err)
	}

	if len(entries) == 0 {
		return nil, wrap(fmt.Errorf("%w: no splits listed", ErrDatasetNotFound))
	}

	subset := h.subset
	if subset == "" {
		subset = entries[0].Config
	}

	var names []string

	for _, e := range entries {
		if e.Config == subset {
			names = append(names, e.Split)
		}
	}

	if len(names) == 0 {
		return nil, wrap(fmt.Errorf("%w: %q", ErrSubsetNotFound, subset))
	}

	if split != "" {
		found := false

		for _, n := range names {
			if n == split {
				found = true

				break
			}
		}

		if !found {
			return nil, wrap(fmt.Errorf("%w: %q (available: %s)", ErrSplitNotFound, split, strings.Join(names, ", ")))
		}

		names = []string{split}
	}

	splits := make([]Split, 0, len(names))

	for _, name := range names {
		rows, err := h.fetchSplit(ctx, subset, name)
		if err != nil {
			return nil, wrap(err)
		}

		h.logger.Info(fmt.Sprintf("📥 Split %s/%s: %d rows", subset, name, len(rows)))
		splits = append(splits, Split{Name: name, Rows: rows})
	}

	return Flatten(splits), nil
}

func (h *HubLoader) listSplits(ctx context.Context) ([]splitEntry, error) {
	var resp splitsResponse

	q := url.Values{"dataset": {h.dataset}}
	if err := h.getJSON(ctx, "/splits", q, &resp); err != nil {
		return nil, err
	}

	return resp.Splits, nil
}

// fetchSplit pages through /rows until the reported total is reached or the
// hub returns an empty page.
func (h *HubLoader) fetchSplit(ctx context.Context, subset, split string) ([]models.RawRecord, error) {
	var rows []models.RawRecord

	for offset := 0; ; {
		q := url.Values{
			"dataset": {h.dataset},
			"config":  {subset},
			"split":   {split},
			"offset":  {strconv.Itoa(offset)},
			"length":  {strconv.Itoa(h.pageSize)},
		}

		var page rowsResponse
		if err := h.getJSON(ctx, "/rows", q, &page); err != nil {
			return nil, fmt.Errorf("rows at offset %d: %w", offset, err)
		}

		h.logger.Debug("fetched page", "split", split, "offset", offset, "rows", len(page.Rows), "total", page.NumRowsTotal)

		if len(page.Rows) == 0 {
			break
		}

		for _, item := range page.Rows {
			rows = append(rows, item.Row)
		}

		offset += len(page.Rows)
		if offset >= page.NumRowsTotal {
			break
		}
	}

	if rows == nil {
		rows = []models.RawRecord{}
	}

	return rows, nil
}

// getJSON issues a GET with the retry policy and decodes the body into v.
func (h *HubLoader) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	target := h.endpoint + path + "?" + q.Encode()

	var lastErr error

	for attempt := 1; attempt <= h.retry.MaxAttempts; attempt++ {
		body, status, err := h.get(ctx, target)
		if err == nil {
			if err := json.Unmarshal(body, v); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", path, err)
			}

			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !isRetryable(status) || attempt == h.retry.MaxAttempts {
			break
		}

		delay := h.retry.GetRetryDelay(attempt)
		h.logger.Warn(fmt.Sprintf("⚠️  Request failed (attempt %d/%d), retrying in %v: %v", attempt, h.retry.MaxAttempts, delay, err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// get performs one request. status is 0 when no response was received and
// -1 when the request could not be built.
func (h *HubLoader) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = h.headers.Clone()

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, statusError(resp.StatusCode, body)
	}

	return body, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))

	var he hubError
	if err := json.Unmarshal(body, &he); err == nil && he.Error != "" {
		msg = he.Error
	}

	msg = utils.NewStringHelper().TruncateString(msg, maxErrorBody)

	base := ErrUnexpectedStatusCode
	switch status {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		base = ErrDatasetNotFound
	}

	if msg == "" {
		return fmt.Errorf("%w: %d", base, status)
	}

	return fmt.Errorf("%w: %d: %s", base, status, msg)
}

// isRetryable reports whether a failed request is worth repeating. Status 0
// means a transport error.
func isRetryable(status int) bool {
	switch status {
	case 0,
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// IsNotFound reports whether err means the dataset, subset or split does
// not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, ErrSubsetNotFound) ||
		errors.Is(err, ErrSplitNotFound)
}
