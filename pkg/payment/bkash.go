package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// BkashClient talks to the bKash tokenized checkout API. Grant tokens
// are cached until shortly before expiry.
type BkashClient struct {
	baseURL   string
	appKey    string
	appSecret string
	username  string
	password  string

	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewBkashClient(baseURL, appKey, appSecret, username, password string) *BkashClient {
	return &BkashClient{
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *BkashClient) Provider() string { return "bkash" }

func (b *BkashClient) InitiatePayment(ctx context.Context, request *InitiateRequest) (*InitiateResponse, error) {
	token, err := b.grantToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("bkash token grant failed: %w", err)
	}

	body := map[string]interface{}{
		"mode":                  "0011",
		"payerReference":        request.CustomerID,
		"callbackURL":           request.CallbackURL,
		"amount":                fmt.Sprintf("%.2f", float64(request.Amount)/100),
		"currency":              request.Currency,
		"intent":                "sale",
		"merchantInvoiceNumber": request.OrderNumber,
	}

	var result struct {
		PaymentID  string `json:"paymentID"`
		BkashURL   string `json:"bkashURL"`
		StatusCode string `json:"statusCode"`
	}
	if err := b.post(ctx, "/tokenized/checkout/create", token, body, &result); err != nil {
		return nil, fmt.Errorf("bkash create payment failed: %w", err)
	}

	return &InitiateResponse{
		TransactionRef: result.PaymentID,
		RedirectURL:    result.BkashURL,
		Status:         result.StatusCode,
	}, nil
}

func (b *BkashClient) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	token, err := b.grantToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("bkash token grant failed: %w", err)
	}

	body := map[string]interface{}{
		"paymentID": request.TransactionRef,
		"amount":    fmt.Sprintf("%.2f", float64(request.Amount)/100),
		"reason":    request.Reason,
	}

	var result struct {
		RefundTrxID       string `json:"refundTrxID"`
		TransactionStatus string `json:"transactionStatus"`
	}
	if err := b.post(ctx, "/tokenized/checkout/payment/refund", token, body, &result); err != nil {
		return nil, fmt.Errorf("bkash refund failed: %w", err)
	}

	return &RefundResponse{
		RefundRef: result.RefundTrxID,
		Status:    result.TransactionStatus,
		Amount:    request.Amount,
	}, nil
}

func (b *BkashClient) grantToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token != "" && time.Now().Before(b.tokenExpiry) {
		return b.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"app_key":    b.appKey,
		"app_secret": b.appSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/tokenized/checkout/token/grant", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("username", b.username)
	req.Header.Set("password", b.password)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		IDToken   string `json:"id_token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("bkash returned empty token")
	}

	b.token = result.IDToken
	b.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-60) * time.Second)

	return b.token, nil
}

func (b *BkashClient) post(ctx context.Context, path, token string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("X-APP-Key", b.appKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("bkash returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
