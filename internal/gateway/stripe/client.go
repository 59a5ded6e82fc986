package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
)

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the Stripe payment-intents API on behalf of connected team
// accounts.
type Client struct {
	apiKey string
	client *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateIntent(ctx context.Context, params gatewaydomain.CreateIntentParams) (gatewaydomain.Intent, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(params.Amount, 10))
	values.Set("currency", strings.ToLower(params.Currency))
	values.Set("automatic_payment_methods[enabled]", "false")
	values.Set("payment_method_types[]", "card")

	keys := make([]string, 0, len(params.Metadata))
	for key := range params.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		values.Set("metadata["+key+"]", params.Metadata[key])
	}

	return c.doRequest(ctx, http.MethodPost, "/v1/payment_intents", values, params.AccountID, params.IdempotencyKey)
}

func (c *Client) RetrieveIntent(ctx context.Context, accountID, intentID string) (gatewaydomain.Intent, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, accountID, "")
}

func (c *Client) CancelIntent(ctx context.Context, accountID, intentID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/v1/payment_intents/"+intentID+"/cancel", url.Values{}, accountID, "")
	return err
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	accountID string,
	idempotencyKey string,
) (gatewaydomain.Intent, error) {
	if c.apiKey == "" {
		return gatewaydomain.Intent{}, errors.New("gateway_api_key_missing")
	}
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://api.stripe.com"+path, bodyReader)
	if err != nil {
		return gatewaydomain.Intent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if accountID != "" {
		req.Header.Set("Stripe-Account", accountID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return gatewaydomain.Intent{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return gatewaydomain.Intent{}, errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return gatewaydomain.Intent{}, errors.New(message)
	}

	var intent gatewaydomain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return gatewaydomain.Intent{}, err
	}
	if intent.ID == "" {
		return gatewaydomain.Intent{}, errors.New("stripe_response_invalid")
	}
	return intent, nil
}
