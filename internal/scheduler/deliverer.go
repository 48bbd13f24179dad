package scheduler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/pkg/httpretry"
)

// ErrDeliveryFailed marks a delivery attempt whose retry budget is
// exhausted. Messages in the batch transition to failed.
var ErrDeliveryFailed = errors.New("delivery failed")

// Deliverer hands rendered message batches to the external delivery
// collaborator. The request body is canonical (sorted-key) JSON signed with
// HMAC-SHA256; the signature travels in the X-Signature header and the
// X-Idempotency-Key header is derived from the sorted member message IDs,
// so the same set of messages always presents the same key regardless of
// batch order.
type Deliverer interface {
	Deliver(ctx context.Context, batch []domain.CampaignMessage) error
}

// HTTPDeliverer implements Deliverer over a signed POST with retries.
type HTTPDeliverer struct {
	endpoint string
	secret   []byte
	client   httpretry.HTTPDoer
}

// NewHTTPDeliverer creates a deliverer. retryBudget and backoffBase feed
// the retrying client; timeout bounds each individual attempt.
func NewHTTPDeliverer(endpoint, secret string, timeout time.Duration, retryBudget int, backoffBase time.Duration) *HTTPDeliverer {
	base := &http.Client{Timeout: timeout}
	return &HTTPDeliverer{
		endpoint: endpoint,
		secret:   []byte(secret),
		client:   httpretry.NewRetryClient(base, retryBudget, backoffBase),
	}
}

// Deliver posts the batch. A non-success status after the retry budget is
// exhausted is reported as ErrDeliveryFailed.
func (d *HTTPDeliverer) Deliver(ctx context.Context, batch []domain.CampaignMessage) error {
	if len(batch) == 0 {
		return nil
	}

	body, err := canonicalJSON(map[string]interface{}{
		"messages": batch,
		"count":    len(batch),
	})
	if err != nil {
		return fmt.Errorf("encode delivery batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", d.Sign(body))
	req.Header.Set("X-Idempotency-Key", batchKey(batch))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: collaborator returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// batchKey derives the idempotency key for a batch from its member message
// IDs, sorted so ordering does not change the key.
func batchKey(batch []domain.CampaignMessage) string {
	ids := make([]string, len(batch))
	for i, msg := range batch {
		ids[i] = msg.ID
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA256 of body under the shared secret.
func (d *HTTPDeliverer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalJSON marshals v with all object keys sorted at every level, so
// sender and receiver sign identical bytes.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
