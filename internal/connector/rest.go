package connector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OPSDECK/opsdeck/internal/models"
)

// maxBodyBytes caps how much of a response is read. Widget queries return
// bounded result sets; anything larger indicates a misconfigured query.
const maxBodyBytes = 8 << 20

// excerptLen limits the body excerpt attached to error detail.
const excerptLen = 200

// JoinURL joins a base URL and a path with exactly one separating slash,
// irrespective of trailing/leading slashes on either side. An absolute path
// argument is returned verbatim.
func JoinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

// restConnector is the shared REST executor behind every connector family.
// Families differ only in their catalogue, header conventions, probe target,
// dialect validation, and record extraction.
type restConnector struct {
	name         string
	catalogue    []models.QueryDef
	apiKeyHeader string
	// staticHeaders are sent on every request (e.g. kbn-xsrf for Kibana).
	staticHeaders map[string]string
	probePath     string
	validate      func(query string) error
	// buildRequest translates a dialect query into path/method/body. Nil
	// means the query is already a path or absolute URL.
	buildRequest func(req Request) (Request, error)
	// extractRecords pulls the record list out of a family payload shape.
	// Nil falls back to top-level-array extraction.
	extractRecords func(data any) []map[string]any
}

func (c *restConnector) Name() string { return c.name }

func (c *restConnector) Catalogue() []models.QueryDef {
	out := make([]models.QueryDef, len(c.catalogue))
	copy(out, c.catalogue)
	return out
}

func (c *restConnector) ValidateQuery(query string) error {
	if c.validate == nil {
		return nil
	}
	return c.validate(query)
}

func (c *restConnector) Execute(ctx context.Context, inst models.SystemInstance, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == ProbeQuery {
		return c.Probe(ctx, inst)
	}
	if err := c.ValidateQuery(req.Query); err != nil {
		return nil, err
	}
	if c.buildRequest != nil {
		built, err := c.buildRequest(req)
		if err != nil {
			return nil, err
		}
		req = built
	}
	return c.do(ctx, inst, req)
}

func (c *restConnector) Probe(ctx context.Context, inst models.SystemInstance) (*Response, error) {
	return c.do(ctx, inst, Request{Query: c.probePath, Method: http.MethodGet})
}

// do performs one transport call and classifies the outcome.
func (c *restConnector) do(ctx context.Context, inst models.SystemInstance, req Request) (*Response, error) {
	start := time.Now()

	target := JoinURL(inst.BaseURL, req.Query)
	if len(req.Params) > 0 {
		q := url.Values{}
		for k, v := range req.Params {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target = target + sep + q.Encode()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, WrapError(KindInput, err, "invalid request for %s", target)
	}

	opts := BuildTransportOptions(inst)
	for k, v := range BuildHeaders(inst, c.apiKeyHeader) {
		httpReq.Header.Set(k, v)
	}
	for k, v := range c.staticHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, WrapError(KindTransport, err, "request to %s failed", inst.InstanceID)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, WrapError(KindTransport, err, "reading response from %s", inst.InstanceID)
	}

	data, err := c.classify(inst, resp, raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Data:       data,
		Records:    c.records(data),
		Duration:   time.Since(start),
	}, nil
}

// classify turns status code, content type and body into a decoded payload or
// the most specific error kind determinable.
func (c *restConnector) classify(inst models.SystemInstance, resp *http.Response, raw []byte) (any, error) {
	status := resp.StatusCode

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &QueryError{
			Kind:    KindAuthentication,
			Message: fmt.Sprintf("%s rejected credentials for instance %s", c.name, inst.InstanceID),
			Detail:  fmt.Sprintf("status %d: %s", status, excerpt(raw)),
		}
	}

	if status < 200 || status > 299 {
		var payload any
		if json.Unmarshal(raw, &payload) == nil {
			return nil, &QueryError{
				Kind:    KindUpstream,
				Message: fmt.Sprintf("%s returned an error for instance %s", c.name, inst.InstanceID),
				Detail:  fmt.Sprintf("status %d: %s", status, excerpt(raw)),
			}
		}
		return nil, &QueryError{
			Kind:    KindUpstream,
			Message: fmt.Sprintf("%s returned status %d for instance %s", c.name, status, inst.InstanceID),
			Detail:  excerpt(raw),
		}
	}

	// Several backends answer HTTP 200 with a login page when credentials are
	// stale. A markup body on a 2xx is an authentication failure, never a
	// parse error.
	if looksLikeMarkup(resp.Header.Get("Content-Type"), raw) {
		return nil, &QueryError{
			Kind:    KindAuthentication,
			Message: fmt.Sprintf("%s answered with markup instead of structured data for instance %s; credentials are likely stale or the API is disabled", c.name, inst.InstanceID),
			Detail:  fmt.Sprintf("status %d: %s", status, excerpt(raw)),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &QueryError{
			Kind:    KindMalformed,
			Message: fmt.Sprintf("%s response for instance %s is not valid JSON", c.name, inst.InstanceID),
			Detail:  excerpt(raw),
			Err:     err,
		}
	}
	return data, nil
}

func (c *restConnector) records(data any) []map[string]any {
	if c.extractRecords != nil {
		if recs := c.extractRecords(data); recs != nil {
			return recs
		}
	}
	return topLevelRecords(data)
}

// topLevelRecords views a decoded payload as a list of objects when it is one.
func topLevelRecords(data any) []map[string]any {
	list, ok := data.([]any)
	if !ok {
		return nil
	}
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		records = append(records, obj)
	}
	return records
}

// recordsUnder extracts a list of objects stored under the given key of an
// object payload. Shared by families whose APIs wrap results in an envelope.
func recordsUnder(key string) func(any) []map[string]any {
	return func(data any) []map[string]any {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil
		}
		return topLevelRecords(obj[key])
	}
}

// looksLikeMarkup reports whether the content type or body signature indicates
// an HTML/XML document rather than the expected structured payload.
func looksLikeMarkup(contentType string, body []byte) bool {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "text/html", "application/xhtml+xml":
				return true
			}
		}
	}
	trimmed := bytes.TrimSpace(body)
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
}

func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > excerptLen {
		return s[:excerptLen] + "..."
	}
	return s
}
