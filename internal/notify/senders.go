package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPEmailSender talks to the transactional email provider's REST API.
type HTTPEmailSender struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	From    string
}

func NewHTTPEmailSender(baseURL, apiKey, from string) *HTTPEmailSender {
	return &HTTPEmailSender{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
	}
}

func (s *HTTPEmailSender) SendEmail(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"from":     s.From,
		"to":       to,
		"subject":  subject,
		"template": templateID,
		"data":     data,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("email provider: %s", res.Status)
	}
	return nil
}

// HTTPSMSSender talks to the SMS gateway's REST API.
type HTTPSMSSender struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Sender  string
}

func NewHTTPSMSSender(baseURL, apiKey, sender string) *HTTPSMSSender {
	return &HTTPSMSSender{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
		APIKey:  apiKey,
		Sender:  sender,
	}
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, templateID string, data map[string]string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"sender":   s.Sender,
		"to":       to,
		"template": templateID,
		"data":     data,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.BaseURL+"/v1/sms", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	res, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("sms provider: %s", res.Status)
	}
	return nil
}
