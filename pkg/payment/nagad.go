package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NagadClient talks to the Nagad merchant checkout API.
type NagadClient struct {
	baseURL    string
	merchantID string
	publicKey  string
	privateKey string
	httpClient *http.Client
}

func NewNagadClient(baseURL, merchantID, publicKey, privateKey string) *NagadClient {
	return &NagadClient{
		baseURL:    baseURL,
		merchantID: merchantID,
		publicKey:  publicKey,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *NagadClient) Provider() string { return "nagad" }

func (n *NagadClient) InitiatePayment(ctx context.Context, request *InitiateRequest) (*InitiateResponse, error) {
	body := map[string]interface{}{
		"merchantId":      n.merchantID,
		"orderId":         request.OrderNumber,
		"amount":          fmt.Sprintf("%.2f", float64(request.Amount)/100),
		"currencyCode":    "050", // BDT
		"callbackUrl":     request.CallbackURL,
		"additionalMerchantInfo": request.Metadata,
	}

	var result struct {
		PaymentReferenceID string `json:"paymentReferenceId"`
		CallBackURL        string `json:"callBackUrl"`
		Status             string `json:"status"`
	}
	if err := n.post(ctx, "/api/dfs/check-out/initialize/"+n.merchantID+"/"+request.OrderNumber, body, &result); err != nil {
		return nil, fmt.Errorf("nagad initialize failed: %w", err)
	}

	return &InitiateResponse{
		TransactionRef: result.PaymentReferenceID,
		RedirectURL:    result.CallBackURL,
		Status:         result.Status,
	}, nil
}

func (n *NagadClient) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	body := map[string]interface{}{
		"merchantId":         n.merchantID,
		"paymentReferenceId": request.TransactionRef,
		"amount":             fmt.Sprintf("%.2f", float64(request.Amount)/100),
		"reason":             request.Reason,
	}

	var result struct {
		RefundReferenceID string `json:"refundReferenceId"`
		Status            string `json:"status"`
	}
	if err := n.post(ctx, "/api/dfs/purchase/refund", body, &result); err != nil {
		return nil, fmt.Errorf("nagad refund failed: %w", err)
	}

	return &RefundResponse{
		RefundRef: result.RefundReferenceID,
		Status:    result.Status,
		Amount:    request.Amount,
	}, nil
}

func (n *NagadClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KM-Api-Version", "v-0.2.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("nagad returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
