package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

// APIError is a non-2xx answer from the relay API.
type APIError struct {
	Status    int
	Message   string
	Reason    string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("relay api %d (%s): %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("relay api %d: %s", e.Status, e.Message)
}

var ErrNotFound = errors.New("not found")

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// MessageClient talks to the relay message API with a bearer token.
type MessageClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*MessageClient)

func WithHTTPClient(c *http.Client) Option {
	return func(m *MessageClient) { m.http = c }
}

func WithToken(token string) Option {
	return func(m *MessageClient) { m.token = token }
}

func New(baseURL string, opts ...Option) *MessageClient {
	c := &MessageClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MessageClient) SetToken(token string) {
	c.token = token
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *MessageClient) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *MessageClient) ListMessages(ctx context.Context) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *MessageClient) CreateMessage(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", msg, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// MessageUpdate is the wire form of a patch.
type MessageUpdate struct {
	Status      domain.MessageStatus `json:"status,omitempty"`
	OTP         *string              `json:"otp,omitempty"`
	RecipientID *string              `json:"recipientId,omitempty"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
}

func (c *MessageClient) UpdateMessage(ctx context.Context, id string, patch MessageUpdate) (*domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/messages/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// RequestOTP files a request as the signed-in cashier.
func (c *MessageClient) RequestOTP(ctx context.Context) (*domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cashier/otp-requests", nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *MessageClient) PendingRequests(ctx context.Context) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/admin/otp-requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

type Generation struct {
	Request  domain.Message `json:"request"`
	Response domain.Message `json:"response"`
}

func (c *MessageClient) Generate(ctx context.Context, requestID string) (*Generation, error) {
	var out Generation
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/otp-requests/"+url.PathEscape(requestID)+"/generate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MessageClient) Deliver(ctx context.Context, responseID string) (*domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cashier/messages/"+url.PathEscape(responseID)+"/delivered", nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *MessageClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error     string `json:"error"`
			Reason    string `json:"reason"`
			RequestID string `json:"requestId"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
			if payload.Error != "" {
				apiErr.Message = payload.Error
			}
			apiErr.Reason = payload.Reason
			apiErr.RequestID = payload.RequestID
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
