package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StatusError is returned when a collaborator answers with a non-2xx status.
// Adapters use the code to tell a business rejection from an outage.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client is a traced, injectable HTTP client shared by all collaborator
// adapters. It carries no per-request timeout of its own; deadlines come from
// the caller's context.
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
}

func NewClient(tracer trace.Tracer) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
	}
}

// PostJSON sends body as JSON and, when out is non-nil, decodes the response
// into it.
func (c *Client) PostJSON(ctx context.Context, serviceURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	return c.do(ctx, http.MethodPost, serviceURL, "application/json", reader, out)
}

// GetJSON fetches serviceURL and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, serviceURL string, out interface{}) error {
	return c.do(ctx, http.MethodGet, serviceURL, "", nil, out)
}

// PutJSON sends body as JSON via PUT and optionally decodes the response.
func (c *Client) PutJSON(ctx context.Context, serviceURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	return c.do(ctx, http.MethodPut, serviceURL, "application/json", reader, out)
}

// PostBytes uploads an opaque payload (e.g. a rendered document) and decodes
// the response into out when non-nil.
func (c *Client) PostBytes(ctx context.Context, serviceURL, contentType string, payload []byte, out interface{}) error {
	return c.do(ctx, http.MethodPost, serviceURL, contentType, bytes.NewReader(payload), out)
}

// GetRaw fetches serviceURL and returns the response body verbatim, for
// endpoints that serve binary payloads instead of JSON.
func (c *Client) GetRaw(ctx context.Context, serviceURL string) ([]byte, error) {
	var raw rawBody
	if err := c.do(ctx, http.MethodGet, serviceURL, "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.data, nil
}

// rawBody short-circuits JSON decoding in do.
type rawBody struct {
	data []byte
}

func (c *Client) do(ctx context.Context, method, serviceURL, contentType string, body io.Reader, out interface{}) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return err
	}
	spanName := fmt.Sprintf("call-%s", strings.Split(parsedURL.Host, ":")[0])

	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, serviceURL, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	span.SetAttributes(
		attribute.String("http.url", serviceURL),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	switch target := out.(type) {
	case nil:
	case *rawBody:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("read response from %s: %w", serviceURL, err)
		}
		target.data = data
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decode response from %s: %w", serviceURL, err)
		}
	}
	return nil
}
