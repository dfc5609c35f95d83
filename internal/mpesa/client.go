package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Config holds the Daraja account settings for one gateway client.
type Config struct {
	BaseURL     string
	ShortCode   string
	Passkey     string
	CallbackURL string
}

// TokenSource supplies a valid access token for outbound gateway calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client issues the two outbound Daraja calls: STK push initiation and
// the synchronous status query. Both deployment entry points share this
// one implementation, parameterized by Config.
type Client struct {
	cfg        Config
	tokens     TokenSource
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a gateway client. A nil httpClient falls back to a
// default with a 30-second timeout.
func NewClient(cfg Config, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// stkPushRequest is the signed processrequest body.
type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's acknowledgement of an initiate call.
// CheckoutRequestID is the reference a later callback is matched on.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type statusQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// InitiatePayment sends an STK push prompting the customer's phone for
// payment. The order ID rides along as the account reference. Amounts
// are whole shillings on the wire.
func (c *Client) InitiatePayment(ctx context.Context, phone string, amount float64, orderID string) (*STKPushResponse, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	timestamp := c.now().Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(amount)),
		PartyA:            NormalizePhone(phone),
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       NormalizePhone(phone),
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  orderID,
		TransactionDesc:   "Enkana Fresh order " + orderID,
	}

	raw, err := c.post(ctx, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", body)
	if err != nil {
		return nil, err
	}

	var resp STKPushResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response: %w", err)
	}

	return &resp, nil
}

// QueryStatus polls the gateway for the outcome of an STK push whose
// callback has not arrived. It returns the raw gateway result and
// mutates nothing; the caller decides what to do with it.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (json.RawMessage, error) {
	timestamp := c.now().Format("20060102150405")
	body := statusQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	return c.post(ctx, c.cfg.BaseURL+"/mpesa/stkpushquery/v1/query", body)
}

// password builds the Daraja request password for a given timestamp:
// base64(shortcode + passkey + timestamp).
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

// post sends a signed JSON request with a bearer token and returns the
// raw response body, or a GatewayError on a non-2xx status.
func (c *Client) post(ctx context.Context, url string, body any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{Status: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}
