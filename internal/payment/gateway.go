package payment

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

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// ProviderError is a response the provider returned with a failure status.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("paystack error (%d): %s", e.StatusCode, e.Message)
}

// ToMinorUnits converts an amount in major units (cedis) to the smallest
// currency unit (pesewas), rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

type paystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// ----------------- Constructor -----------------

func NewPaystackGateway(secretKey, baseURL string, timeout time.Duration) Gateway {
	if secretKey == "" {
		logger.L().Warn("Paystack secret key is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker("paystack"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors mean the provider is up.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var pe *ProviderError
			return errors.As(err, &pe) && pe.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call runs one provider request through the breaker and unwraps the
// response envelope.
func (g *paystackGateway) call(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	if g.secretKey == "" {
		return nil, ErrNotConfigured
	}

	timer := metrics.StartTimer()
	raw, err := g.breaker.Execute(func() ([]byte, error) {
		return g.send(ctx, method, path, body)
	})

	result := "ok"
	if err != nil {
		result = "error"
	}
	timer.ObserveMS(metrics.PaymentProviderLatency.WithLabelValues(op, result))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrProviderUnavailable
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}
	if !env.Status {
		return nil, &ProviderError{StatusCode: http.StatusBadRequest, Message: env.Message}
	}
	return env.Data, nil
}

func (g *paystackGateway) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", ProviderPaystack),
		zap.String("path", path),
	)

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			log.Error("Failed to marshal payment request", zap.Error(err))
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Paystack request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read paystack response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(bodyBytes, &env)
		log.Warn("Paystack returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message),
		)
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	return bodyBytes, nil
}

// ----------------- Initialize -----------------

func (g *paystackGateway) Initialize(ctx context.Context, in InitializeRequest) (*InitializeResult, error) {
	body := map[string]any{
		"email":     in.Email,
		"amount":    in.AmountMinor,
		"currency":  in.Currency,
		"reference": in.Reference,
		"metadata":  in.Metadata,
	}
	if in.CallbackURL != "" {
		body["callback_url"] = in.CallbackURL
	}

	data, err := g.call(ctx, "initialize", http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var res struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode initialize data: %w", err)
	}

	logger.FromCtx(ctx).Info("Paystack transaction initialized",
		zap.String("reference", res.Reference),
		zap.Int64("amount_minor", in.AmountMinor),
	)

	return &InitializeResult{
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        res.Reference,
	}, nil
}

// ----------------- Verify -----------------

func (g *paystackGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	data, err := g.call(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var res struct {
		Status          string          `json:"status"`
		Reference       string          `json:"reference"`
		Amount          int64           `json:"amount"`
		Currency        string          `json:"currency"`
		Channel         string          `json:"channel"`
		GatewayResponse string          `json:"gateway_response"`
		PaidAt          *time.Time      `json:"paid_at"`
		Metadata        json.RawMessage `json:"metadata"`
		Customer        struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode verify data: %w", err)
	}

	return &Verification{
		Reference:       res.Reference,
		Status:          Status(res.Status),
		Amount:          fromMinorUnits(res.Amount),
		Currency:        res.Currency,
		Channel:         res.Channel,
		GatewayResponse: res.GatewayResponse,
		PaidAt:          res.PaidAt,
		CustomerEmail:   res.Customer.Email,
		Metadata:        decodeMetadata(res.Metadata),
	}, nil
}

// decodeMetadata accepts the provider's metadata, which is an object when
// set and an empty string otherwise.
func decodeMetadata(raw json.RawMessage) map[string]any {
	var m map[string]any
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
