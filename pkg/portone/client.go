package portone

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

	"github.com/ohyerin/magpress-backend/pkg/config"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
)

var (
	errAPISecretRequired = errors.New("portone api secret is required")
	errLoggerRequired    = errors.New("portone logger is required")
)

// Client exposes PortOne v2 primitives with centralized auth, logging, and
// error mapping. PortOne ships no Go SDK, so calls go over plain HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiSecret  string
	storeID    string
	logger     *logger.Logger
}

// NewClient initializes the PortOne wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PortOneConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	secret := strings.TrimSpace(cfg.APISecret)
	if secret == "" {
		return nil, errAPISecretRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.portone.io"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiSecret:  secret,
		storeID:    strings.TrimSpace(cfg.StoreID),
		logger:     logg,
	}

	logg.Info(ctx, "portone client initialized")
	return c, nil
}

// GetPayment fetches the authoritative payment record by payment id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": paymentID})

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id":  paymentID,
		"amount":      payment.Amount.Total,
		"has_billing": payment.BillingKey != "",
	})
	return &payment, nil
}

// PayWithBillingKey charges a stored billing key under the given payment id.
func (c *Client) PayWithBillingKey(ctx context.Context, paymentID string, params BillingKeyPaymentParams) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if params.BillingKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing key is required")
	}
	c.log(ctx, "request", "pay_with_billing_key", map[string]any{
		"payment_id":  paymentID,
		"order_name":  params.OrderName,
		"customer_id": params.Customer.ID,
		"amount":      params.Amount.Total,
	})

	var result Payment
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/billing-key", params, &result); err != nil {
		c.log(ctx, "error", "pay_with_billing_key", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "pay_with_billing_key", map[string]any{"payment_id": paymentID})
	return &result, nil
}

// CreateSchedule registers a future charge that will fire under paymentID.
func (c *Client) CreateSchedule(ctx context.Context, paymentID string, params CreateScheduleParams) (*Schedule, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule payment id is required")
	}
	if params.Payment.BillingKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing key is required")
	}
	c.log(ctx, "request", "create_schedule", map[string]any{
		"payment_id":  paymentID,
		"time_to_pay": params.TimeToPay,
		"amount":      params.Payment.Amount.Total,
	})

	var schedule Schedule
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/schedule", params, &schedule); err != nil {
		c.log(ctx, "error", "create_schedule", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_schedule", map[string]any{"payment_id": paymentID, "schedule_id": schedule.ID})
	return &schedule, nil
}

// ListSchedules queries the schedule registry within the given window.
func (c *Client) ListSchedules(ctx context.Context, params ListSchedulesParams) ([]Schedule, error) {
	query := url.Values{}
	if params.BillingKey != "" {
		query.Set("billingKey", params.BillingKey)
	}
	if !params.From.IsZero() {
		query.Set("from", params.From.UTC().Format(time.RFC3339))
	}
	if !params.Until.IsZero() {
		query.Set("until", params.Until.UTC().Format(time.RFC3339))
	}
	path := "/payment-schedules"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	c.log(ctx, "request", "list_schedules", map[string]any{
		"from":  params.From,
		"until": params.Until,
	})

	var resp listSchedulesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.log(ctx, "error", "list_schedules", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "list_schedules", map[string]any{"count": len(resp.Items)})
	return resp.Items, nil
}

// RevokeSchedules deletes scheduled charges from the gateway registry.
func (c *Client) RevokeSchedules(ctx context.Context, billingKey string, scheduleIDs []string) (*RevokedSchedules, error) {
	if len(scheduleIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one schedule id is required")
	}
	c.log(ctx, "request", "revoke_schedules", map[string]any{"schedule_ids": scheduleIDs})

	var revoked RevokedSchedules
	req := revokeSchedulesRequest{BillingKey: billingKey, ScheduleIDs: scheduleIDs}
	if err := c.do(ctx, http.MethodDelete, "/payment-schedules", req, &revoked); err != nil {
		c.log(ctx, "error", "revoke_schedules", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "revoke_schedules", map[string]any{"revoked": revoked.RevokedScheduleIDs})
	return &revoked, nil
}

// CancelPayment asks the gateway to cancel a completed payment.
func (c *Client) CancelPayment(ctx context.Context, paymentID, reason string) (*CancelledPayment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "requested by customer"
	}
	c.log(ctx, "request", "cancel_payment", map[string]any{"payment_id": paymentID})

	var cancelled CancelledPayment
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/cancel", cancelPaymentRequest{Reason: reason}, &cancelled); err != nil {
		c.log(ctx, "error", "cancel_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "cancel_payment", map[string]any{"payment_id": paymentID})
	return &cancelled, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode portone request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build portone request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "PortOne "+c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call portone")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read portone response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if dest == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode portone response")
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	var apiErr apiError
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		message = apiErr.Message
	}

	code := pkgerrors.CodeDependency
	switch status {
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = pkgerrors.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		code = pkgerrors.CodeUnauthorized
	}

	return pkgerrors.New(code, fmt.Sprintf("portone: %s", message)).WithDetails(map[string]any{
		"http_status": status,
		"error_type":  apiErr.Type,
	})
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{"gateway": "portone", "phase": phase, "operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logger.WithFields(ctx, merged)
	c.logger.Info(ctx, "portone."+operation)
}
