// Package backend talks to the Secret Santa HTTP API. Every exported method
// maps to exactly one endpoint and never retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/secretsanta/internal/participant"
)

const (
	// DefaultTimeout bounds requests whose context carries no deadline.
	DefaultTimeout = 15 * time.Second
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64 = 10 << 20

	userAgent       = "secretsanta-tui"
	requestIDHeader = "X-Request-ID"
	uploadField     = "file"
)

var dispositionFilename = regexp.MustCompile(`filename=(.+)`)

// Client is a thin HTTP client for the /api endpoints.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	newID   func() string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the deadline applied when the caller's context has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs lets tests pin the X-Request-ID values.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// New builds a client rooted at baseURL (scheme and host, optional path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must include scheme and host", baseURL)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Validate posts the roster to /api/validate.
func (c *Client) Validate(ctx context.Context, participants []participant.Participant) (ValidationResponse, error) {
	var out ValidationResponse
	body, err := json.Marshal(nonNil(participants))
	if err != nil {
		return out, fmt.Errorf("backend: encode participants: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/validate", nil, "application/json", body)
	if err != nil {
		return out, err
	}
	if !resp.ok() {
		return out, resp.serviceError()
	}
	if err := resp.decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Upload sends a roster file to /api/upload as a single multipart field.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (UploadResponse, error) {
	var out UploadResponse
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, fileName))
	header.Set("Content-Type", mimetype.Detect(data).String())
	part, err := writer.CreatePart(header)
	if err != nil {
		return out, fmt.Errorf("backend: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return out, fmt.Errorf("backend: build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("backend: build upload: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/upload", nil, writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return out, err
	}
	if !resp.ok() {
		return out, resp.serviceError()
	}
	if err := resp.decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Draw posts a draw request. Infeasible draws come back as a DrawResponse
// with Success=false and a nil error, whatever the status code.
func (c *Client) Draw(ctx context.Context, req DrawRequest) (DrawResponse, error) {
	var out DrawResponse
	req.Participants = nonNil(req.Participants)
	req.ArchiveEmail = strings.TrimSpace(req.ArchiveEmail)
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("backend: encode draw request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/draw", nil, "application/json", body)
	if err != nil {
		return out, err
	}
	decodeErr := resp.decode(&out)
	if resp.ok() {
		return out, decodeErr
	}
	if decodeErr != nil || (!out.Success && strings.TrimSpace(out.Error) == "") {
		return DrawResponse{}, resp.serviceError()
	}
	return out, nil
}

// Status fetches the notification channel catalog.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	resp, err := c.do(ctx, http.MethodGet, "/api/status", nil, "", nil)
	if err != nil {
		return out, err
	}
	if !resp.ok() {
		return out, resp.serviceError()
	}
	if err := resp.decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Template downloads a starter roster file for format.
func (c *Client) Template(ctx context.Context, format string) (File, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	query := url.Values{"format": []string{format}}
	resp, err := c.do(ctx, http.MethodGet, "/api/template", query, "", nil)
	if err != nil {
		return File{}, err
	}
	if !resp.ok() {
		return File{}, resp.serviceError()
	}
	return resp.file("secretsanta-template." + format), nil
}

// Download asks the service to render the roster in format.
func (c *Client) Download(ctx context.Context, participants []participant.Participant, format string) (File, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	body, err := json.Marshal(DownloadRequest{Participants: nonNil(participants), Format: format})
	if err != nil {
		return File{}, fmt.Errorf("backend: encode download request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/download", nil, "application/json", body)
	if err != nil {
		return File{}, err
	}
	if !resp.ok() {
		return File{}, resp.serviceError()
	}
	return resp.file("secretsanta-participants." + format), nil
}

// FilenameFromDisposition extracts filename= from a Content-Disposition
// header, falling back when the header is missing or carries no name.
func FilenameFromDisposition(header, fallback string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}
	if m := dispositionFilename.FindStringSubmatch(header); m != nil {
		if name := strings.Trim(strings.TrimSpace(m[1]), `"`); name != "" {
			return name
		}
	}
	return fallback
}

type response struct {
	status  int
	header  http.Header
	body    []byte
	request string
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r response) serviceError() error {
	return &ServiceError{StatusCode: r.status, Body: string(r.body)}
}

func (r response) decode(target any) error {
	if err := json.Unmarshal(r.body, target); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", r.request, err)
	}
	return nil
}

func (r response) file(fallback string) File {
	return File{
		Name:        FilenameFromDisposition(r.header.Get("Content-Disposition"), fallback),
		ContentType: r.header.Get("Content-Type"),
		Data:        r.body,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte) (response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	target.RawQuery = query.Encode()
	label := method + " " + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return response{}, fmt.Errorf("backend: build %s: %w", label, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	requestID := c.newID()
	req.Header.Set(requestIDHeader, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("request", label),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return response{}, fmt.Errorf("%w: %s", ErrTimeout, label)
		}
		return response{}, fmt.Errorf("backend: %s: %w", label, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return response{}, fmt.Errorf("%w: %s", ErrTimeout, label)
		}
		return response{}, fmt.Errorf("backend: read %s response: %w", label, err)
	}
	c.logger.Debug("request completed",
		zap.String("request", label),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))
	return response{status: resp.StatusCode, header: resp.Header, body: data, request: label}, nil
}

func nonNil(ps []participant.Participant) []participant.Participant {
	if ps == nil {
		return []participant.Participant{}
	}
	return ps
}
