package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"fraud-viewer/internal/domain"

	"github.com/tidwall/gjson"
	"github.com/wb-go/wbf/zlog"
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zlog.Zerolog
}

// NewClient builds a client for the analysis service at baseURL. A zero timeout leaves
// requests bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *zlog.Zerolog) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Analyze posts the payload to the fixed /analyze path. Transport failures, non-2xx answers
// and undecodable bodies come back as errors; application-level failures
// (success=false) are returned as a decoded result.
func (c *Client) Analyze(ctx context.Context, payload *domain.Payload) (*domain.AnalysisResult, error) {
	body, contentType, err := encodeMultipart(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: domain.AnalyzePath})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint.String()).Msg("Analysis request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Info().
		Str("url", endpoint.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Analysis response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readErrorResponse(resp)
	}

	var result domain.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &result, nil
}

// Fetch GETs a resource referenced by the analysis result, resolved against the base URL.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, domain.DefaultMaxErrorBodySize))
		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: statusMessage(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.logger.Debug().Str("url", target).Int("size", len(data)).Msg("Resource fetched")
	return data, nil
}

func (c *Client) Resolve(ref string) (string, error) {
	return ResolveAgainst(c.baseURL, ref)
}

func ResolveAgainst(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || ref == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, ref)
	}
	return base.ResolveReference(u).String(), nil
}

func readErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, domain.DefaultMaxErrorBodySize))

	message := statusMessage(resp.StatusCode)
	if gjson.ValidBytes(data) {
		if field := gjson.GetBytes(data, "error"); field.Exists() && field.Type != gjson.Null && field.String() != "" {
			message = field.String()
		}
	}

	return &ResponseError{StatusCode: resp.StatusCode, Message: message}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(payload *domain.Payload) (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for _, field := range payload.Fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", field.Name, err)
		}
	}

	for _, file := range payload.Files {
		if err := writeFilePart(w, file); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, file domain.FilePart) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part %s: %w", file.Field, err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("failed to copy %s: %w", file.Filename, err)
	}

	return nil
}
