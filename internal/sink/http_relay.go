package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPRelay posts every snapshot as JSON to the ingestion endpoint.
// It blocks for up to its timeout, so the pipeline always wraps it in Async.
type HTTPRelay struct {
	url    string
	client *resty.Client
}

// NewHTTPRelay posts to url with a per-request timeout.
func NewHTTPRelay(url string, timeout time.Duration) *HTTPRelay {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &HTTPRelay{url: url, client: client}
}

func (r *HTTPRelay) Name() string { return "http-relay" }
func (r *HTTPRelay) Class() Class { return ClassRelay }

func (r *HTTPRelay) Consume(ctx context.Context, v View) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(Record(v.Snapshot)).
		Post(r.url)
	if err != nil {
		return fmt.Errorf("post %s: %w", r.url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("post %s: %w: %d", r.url, ErrRelayStatus, resp.StatusCode())
	}
	return nil
}

func (r *HTTPRelay) Close() error {
	r.client.GetClient().CloseIdleConnections()
	return nil
}
