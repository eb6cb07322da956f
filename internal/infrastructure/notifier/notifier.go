package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const SignatureHeader = "X-Signature"

type CallbackNotifier struct {
	client *http.Client
	secret string
}

func NewCallbackNotifier(secret string, timeout time.Duration) *CallbackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CallbackNotifier{
		client: &http.Client{Timeout: timeout},
		secret: secret,
	}
}

// SendCallback posts payload to callbackURL. When a secret is configured the
// body is signed with HMAC-SHA256 in the X-Signature header.
func (n *CallbackNotifier) SendCallback(ctx context.Context, callbackURL string, payload CallbackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	slog.Info("callback sent", "url", callbackURL, "tx_ref", payload.TxRef)
	return nil
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
