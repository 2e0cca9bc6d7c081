package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// ErrBadContentRange indicates a count response without a usable total.
var ErrBadContentRange = errors.New("missing or malformed Content-Range total")

const maxErrorBody = 64 << 10

// Select implements store.Reader using the Range header. A range past the
// end of the collection (416) is an empty page.
func (c *Client) Select(ctx context.Context, collection string, columns []string, rng store.Range) ([]store.Row, error) {
	err := rng.Validate()
	if err != nil {
		return nil, err
	}

	if rng.Limit == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("select", selectList(columns))

	if col, ok := c.opts.Order[collection]; ok {
		params.Set("order", col+".asc")
	}

	return c.fetchRows(ctx, "select", collection, params, rng)
}

// List implements store.Lister. Rows are ordered by project_id.
func (c *Client) List(ctx context.Context, collection string, q store.ListQuery) ([]store.Row, error) {
	err := q.Range.Validate()
	if err != nil {
		return nil, err
	}

	if q.Range.Limit == 0 {
		return nil, nil
	}

	params := filterParams(q.Filter)
	params.Set("select", "*")
	params.Set("order", "project_id.asc")

	return c.fetchRows(ctx, "list", collection, params, q.Range)
}

// Count implements store.Reader with an exact count from a HEAD request.
func (c *Client) Count(ctx context.Context, collection string, filter store.Filter) (int, error) {
	params := filterParams(filter)
	params.Set("select", "*")

	header := http.Header{}
	header.Set("Prefer", "count=exact")

	resp, err := c.do(ctx, "count", http.MethodHead, c.resource(collection, params), header)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		return 0, apiError(resp)
	}

	return parseTotal(resp.Header.Get("Content-Range"))
}

func (c *Client) fetchRows(ctx context.Context, op, collection string, params url.Values, rng store.Range) ([]store.Row, error) {
	header := http.Header{}
	header.Set("Range-Unit", "items")
	header.Set("Range", fmt.Sprintf("%d-%d", rng.Offset, rng.End()-1))

	resp, err := c.do(ctx, op, http.MethodGet, c.resource(collection, params), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return nil, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, apiError(resp)
	}

	return decodeRows(resp.Body)
}

func (c *Client) resource(collection string, params url.Values) *url.URL {
	target := c.base.JoinPath(restPath, collection)
	target.RawQuery = params.Encode()

	return target
}

func decodeRows(body io.Reader) ([]store.Row, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw []map[string]any

	err := dec.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	rows := make([]store.Row, len(raw))
	for i, r := range raw {
		rows[i] = store.Row(r)
	}

	return rows, nil
}

func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}

	return strings.Join(columns, ",")
}

// filterParams encodes a filter as PostgREST horizontal filters.
func filterParams(filter store.Filter) url.Values {
	params := url.Values{}

	if country := strings.TrimSpace(filter.Country); country != "" {
		params.Set("country", "eq."+country)
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		params.Set("category", "eq."+category)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := quoteValue("*" + strings.ReplaceAll(search, "*", "") + "*")
		params.Set("or", "(name.ilike."+pattern+",project_id.ilike."+pattern+")")
	}

	return params
}

// quoteValue double-quotes a value inside a logical filter so reserved
// characters such as commas and parentheses are taken literally.
func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)

	return `"` + v + `"`
}

// parseTotal reads N from "a-b/N" or "*/N".
func parseTotal(contentRange string) (int, error) {
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("%w: %q", ErrBadContentRange, contentRange)
	}

	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadContentRange, contentRange)
	}

	return n, nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError builds an APIError from a failed response. The body is not closed.
func apiError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return apiErr
	}

	var body errorBody

	err = json.Unmarshal(data, &body)
	if err != nil {
		apiErr.Message = strings.TrimSpace(string(data))

		return apiErr
	}

	apiErr.Code = body.Code

	if body.Message != "" {
		apiErr.Message = body.Message
	}

	return apiErr
}
