package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const gatewayTimeout = 10 * time.Second

// HTTPGateway реализует PaymentProcessor поверх HTTP API процессора
// (form-encoded запрос, JSON-ответ с client_secret).
type HTTPGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPGateway создаёт клиент платёжного процессора.
func NewHTTPGateway(baseURL, secretKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: gatewayTimeout},
	}
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req domain.IntentRequest) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	if req.ProductID != "" {
		form.Set("metadata[product_id]", req.ProductID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call payment processor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read processor response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("processor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode processor response: %w", err)
	}
	if parsed.ClientSecret == "" {
		return "", fmt.Errorf("processor response has no client_secret")
	}

	return parsed.ClientSecret, nil
}

var _ domain.PaymentProcessor = (*HTTPGateway)(nil)
