package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/niedraa/typevision-server/logger"
)

// The provider reports rich error objects, the app only ever showed the
// user a generic payment failure, so everything collapses to this.
var ErrCheckoutFailed = errors.New("checkout-failed")

type checkoutSession struct {
	Id  string `json:"id"`
	URL string `json:"url"`
}

// Client creates checkout sessions against the payment provider's HTTP API.
// The returned URL is opened by the mobile client in a browser tab.
type Client struct {
	baseURL    string
	secretKey  string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey, successURL, cancelURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession returns the redirect URL for a hosted checkout page.
func (c *Client) CreateCheckoutSession(ctx context.Context, userId, priceId string) (string, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", priceId)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("client_reference_id", userId)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warningf("checkout session rejected, status=%d body=%s", resp.StatusCode, body)
		return "", ErrCheckoutFailed
	}

	var session checkoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if session.URL == "" {
		return "", ErrCheckoutFailed
	}

	return session.URL, nil
}
