package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"own-ai-chat/pkg/apperr"
)

// PostJSON sends payload to url and decodes a 200 response into out.
// Transport failures and gateway-style statuses (502, 503, 504, 429) are
// RemoteUnavailable, anything else unexpected is failKind.
func PostJSON(ctx context.Context, client *http.Client, op, url string, headers map[string]string, payload, out interface{}, failKind apperr.Kind) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(failKind, op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(failKind, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.RemoteUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.RemoteUnavailable, op, fmt.Errorf("read response: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return apperr.Wrap(apperr.RemoteUnavailable, op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw)))
	default:
		return apperr.Wrap(failKind, op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(failKind, op, fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

const maxErrorBody = 512

// truncate shortens b to at most maxErrorBody bytes without splitting a rune.
func truncate(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
