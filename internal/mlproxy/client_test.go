package mlproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendProjectsIsCached(t *testing.T) {
	var calls int32
	sellerID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/recommend/projects/"+sellerID.String(), r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"recommendations":[{"project_id":"p1","score":0.9}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)

	first, err := c.RecommendProjects(context.Background(), sellerID, 3)
	require.NoError(t, err)
	second, err := c.RecommendProjects(context.Background(), sellerID, 3)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIDRoutesForwardUUID(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		path string
		call func(c *Client) (json.RawMessage, error)
	}{
		{"/api/recommend/projects/" + id.String(), func(c *Client) (json.RawMessage, error) {
			return c.RecommendProjects(context.Background(), id, 5)
		}},
		{"/api/recommend/sellers/" + id.String(), func(c *Client) (json.RawMessage, error) {
			return c.RecommendSellers(context.Background(), id, 5)
		}},
		{"/api/analytics/buyer/" + id.String(), func(c *Client) (json.RawMessage, error) {
			return c.BuyerAnalytics(context.Background(), id)
		}},
		{"/api/analytics/seller/" + id.String(), func(c *Client) (json.RawMessage, error) {
			return c.SellerAnalytics(context.Background(), id)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.path, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"success":true}`)
			}))
			defer srv.Close()

			_, err := tc.call(NewClient(srv.URL, time.Second, time.Minute, nil))
			require.NoError(t, err)
		})
	}
}

// Развёртывание с целочисленными маршрутами не знает UUID и отвечает 404.
func TestIntegerOnlyDeploymentReturnsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	_, err := c.SellerAnalytics(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPredictPricePassesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "web", body["category"])
		_, _ = io.WriteString(w, `{"predicted_price":1200.5}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	out, err := c.PredictPrice(context.Background(), json.RawMessage(`{"category":"web"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"predicted_price":1200.5}`, string(out))
}

func TestUpstreamFailureIsUpstreamError(t *testing.T) {
	logger.Discard()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	_, err := c.MarketAnalytics(context.Background(), "", "")
	assert.True(t, apperror.IsUpstream(err))
	assert.True(t, errors.Is(err, apperror.ErrMLUnavailable))

	// Ошибка не кэшируется.
	assert.Equal(t, 0, c.cache.len())
}

func TestUpstreamTimeout(t *testing.T) {
	logger.Discard()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond, time.Minute, nil)
	_, err := c.SellerAnalytics(context.Background(), uuid.New())
	assert.True(t, apperror.IsUpstream(err))
}

func TestBadRequestBecomesValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"error":"Missing required fields: project_id, price"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	_, err := c.EvaluateProposal(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "project_id")
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache()
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("k", "v", time.Minute)
	v, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok)

	cache.evictExpired()
	assert.Equal(t, 0, cache.len())
}

func TestCacheInvalidateByPrefix(t *testing.T) {
	cache := NewCache()
	cache.Set("/api/analytics/buyer/1", 1, time.Minute)
	cache.Set("/api/analytics/seller/1", 2, time.Minute)

	cache.InvalidateByPrefix("/api/analytics/buyer/")

	_, ok := cache.Get("/api/analytics/buyer/1")
	assert.False(t, ok)
	_, ok = cache.Get("/api/analytics/seller/1")
	assert.True(t, ok)
}
