package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SSLCommerzClient talks to the SSLCommerz hosted checkout API, which
// takes form-encoded requests.
type SSLCommerzClient struct {
	baseURL       string
	storeID       string
	storePassword string
	httpClient    *http.Client
}

func NewSSLCommerzClient(baseURL, storeID, storePassword string) *SSLCommerzClient {
	return &SSLCommerzClient{
		baseURL:       baseURL,
		storeID:       storeID,
		storePassword: storePassword,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SSLCommerzClient) Provider() string { return "sslcommerz" }

func (s *SSLCommerzClient) InitiatePayment(ctx context.Context, request *InitiateRequest) (*InitiateResponse, error) {
	form := url.Values{}
	form.Set("store_id", s.storeID)
	form.Set("store_passwd", s.storePassword)
	form.Set("total_amount", fmt.Sprintf("%.2f", float64(request.Amount)/100))
	form.Set("currency", request.Currency)
	form.Set("tran_id", request.OrderNumber)
	form.Set("success_url", request.CallbackURL)
	form.Set("fail_url", request.CallbackURL)
	form.Set("cancel_url", request.CallbackURL)
	form.Set("cus_id", request.CustomerID)
	form.Set("product_category", "food")
	form.Set("shipping_method", "Courier")

	var result struct {
		Status         string `json:"status"`
		SessionKey     string `json:"sessionkey"`
		GatewayPageURL string `json:"GatewayPageURL"`
		FailedReason   string `json:"failedreason"`
	}
	if err := s.postForm(ctx, "/gwprocess/v4/api.php", form, &result); err != nil {
		return nil, fmt.Errorf("sslcommerz session create failed: %w", err)
	}
	if result.Status != "SUCCESS" {
		return nil, fmt.Errorf("sslcommerz rejected session: %s", result.FailedReason)
	}

	return &InitiateResponse{
		TransactionRef: result.SessionKey,
		RedirectURL:    result.GatewayPageURL,
		Status:         result.Status,
	}, nil
}

func (s *SSLCommerzClient) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	form := url.Values{}
	form.Set("store_id", s.storeID)
	form.Set("store_passwd", s.storePassword)
	form.Set("bank_tran_id", request.TransactionRef)
	form.Set("refund_amount", fmt.Sprintf("%.2f", float64(request.Amount)/100))
	form.Set("refund_remarks", request.Reason)

	var result struct {
		Status      string `json:"status"`
		RefundRefID string `json:"refund_ref_id"`
	}
	if err := s.postForm(ctx, "/validator/api/merchantTransIDvalidationAPI.php", form, &result); err != nil {
		return nil, fmt.Errorf("sslcommerz refund failed: %w", err)
	}

	return &RefundResponse{
		RefundRef: result.RefundRefID,
		Status:    result.Status,
		Amount:    request.Amount,
	}, nil
}

func (s *SSLCommerzClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sslcommerz returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
