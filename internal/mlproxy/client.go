// Package mlproxy проксирует запросы к внешнему ML-сервису рекомендаций и аналитики.
package mlproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 5
	maxLimit     = 50
	maxBodySize  = 1 << 20
)

// Client ходит в ML API с ограниченным таймаутом. Хранилище сущностей не трогает.
type Client struct {
	baseURL    string
	timeout    time.Duration
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      *Cache
}

func NewClient(baseURL string, timeout, cacheTTL time.Duration, cache *Cache) *Client {
	if cache == nil {
		cache = NewCache()
	}
	return &Client{
		baseURL:  baseURL,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// RecommendProjects — проекты, подходящие продавцу.
func (c *Client) RecommendProjects(ctx context.Context, sellerID uuid.UUID, limit int) (json.RawMessage, error) {
	q := url.Values{"limit": {strconv.Itoa(normalizeLimit(limit))}}
	return c.cachedGet(ctx, "recommend_projects", "/api/recommend/projects/"+sellerID.String(), q)
}

// RecommendSellers — продавцы, подходящие проекту.
func (c *Client) RecommendSellers(ctx context.Context, projectID uuid.UUID, limit int) (json.RawMessage, error) {
	q := url.Values{"limit": {strconv.Itoa(normalizeLimit(limit))}}
	return c.cachedGet(ctx, "recommend_sellers", "/api/recommend/sellers/"+projectID.String(), q)
}

func (c *Client) MarketAnalytics(ctx context.Context, period, category string) (json.RawMessage, error) {
	if period == "" {
		period = "month"
	}
	q := url.Values{"period": {period}}
	if category != "" {
		q.Set("category", category)
	}
	return c.cachedGet(ctx, "market_analytics", "/api/analytics/market", q)
}

func (c *Client) BuyerAnalytics(ctx context.Context, buyerID uuid.UUID) (json.RawMessage, error) {
	return c.cachedGet(ctx, "buyer_analytics", "/api/analytics/buyer/"+buyerID.String(), nil)
}

func (c *Client) SellerAnalytics(ctx context.Context, sellerID uuid.UUID) (json.RawMessage, error) {
	return c.cachedGet(ctx, "seller_analytics", "/api/analytics/seller/"+sellerID.String(), nil)
}

// PredictPrice не кэшируется: тело запроса каждый раз своё.
func (c *Client) PredictPrice(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, "predict_price", http.MethodPost, "/api/predict/price", nil, body)
}

func (c *Client) EvaluateProposal(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, "evaluate_proposal", http.MethodPost, "/api/evaluate/proposal", nil, body)
}

func (c *Client) cachedGet(ctx context.Context, endpoint, path string, query url.Values) (json.RawMessage, error) {
	key := path + "?" + query.Encode()
	value, err := c.cache.GetOrSet(key, c.cacheTTL, func() (interface{}, error) {
		return c.do(ctx, endpoint, http.MethodGet, path, query, nil)
	})
	if err != nil {
		return nil, err
	}
	return value.(json.RawMessage), nil
}

type upstreamError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сформировать запрос к ML-сервису")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.unavailable(endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, c.unavailable(endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		metrics.MLRequest(endpoint, "rejected")
		var ue upstreamError
		_ = json.Unmarshal(raw, &ue)
		if ue.Error == "" {
			ue.Error = "некорректный запрос к ML-сервису"
		}
		return nil, apperror.New(apperror.ErrCodeValidation, ue.Error)
	case resp.StatusCode == http.StatusNotFound:
		metrics.MLRequest(endpoint, "rejected")
		return nil, apperror.New(apperror.ErrCodeNotFound, "данные для рекомендаций не найдены")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, c.unavailable(endpoint, fmt.Errorf("ml: status=%d", resp.StatusCode))
	}

	if !json.Valid(raw) {
		return nil, c.unavailable(endpoint, fmt.Errorf("ml: invalid json from %s", path))
	}

	metrics.MLRequest(endpoint, "ok")
	return json.RawMessage(raw), nil
}

func (c *Client) unavailable(endpoint string, err error) error {
	metrics.MLRequest(endpoint, "error")
	logger.Log.WithFields(logrus.Fields{"endpoint": endpoint, "error": err}).Error("mlproxy: сервис недоступен")
	return apperror.Wrap(err, apperror.ErrCodeUpstream, apperror.ErrMLUnavailable.Message)
}
