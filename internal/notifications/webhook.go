package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/httputil"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

const DefaultAppName = "Valuator"

// Sender posts alerts to a Slack or Discord incoming webhook. With no URL
// configured, alerts are only logged.
type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

func NewSender(webhookURL, appName string, log zerolog.Logger) *Sender {
	if appName == "" {
		appName = DefaultAppName
	}
	log = log.With().Str("component", "notify").Logger()
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      log,
		},
		log: log,
	}
}

func (s *Sender) Send(ctx context.Context, msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	s.log.Info().Msg(formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to send notification after retries")
		return
	}
	resp.Body.Close()
}

// VerdictChanged announces a ticker whose valuation verdict moved.
func (s *Sender) VerdictChanged(ctx context.Context, symbol string, from, to valuation.Verdict, res *valuation.Result) {
	msg := fmt.Sprintf("%s moved from %s to %s: intrinsic $%.2f vs price $%.2f",
		symbol, from, to, res.IntrinsicValue, res.CurrentPrice)
	if res.UpsidePercent != nil {
		msg += fmt.Sprintf(" (%+.1f%%)", *res.UpsidePercent)
	}
	s.Send(ctx, msg)
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
