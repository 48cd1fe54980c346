package payments

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "price_premium", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "user-42", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "https://app.example/paid", r.PostForm.Get("success_url"))
		assert.Equal(t, "https://app.example/cancel", r.PostForm.Get("cancel_url"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_123","url":"https://pay.example/cs_123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", "https://app.example/paid", "https://app.example/cancel")

	redirectURL, err := client.CreateCheckoutSession(context.Background(), "user-42", "price_premium")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_123", redirectURL)
}

func TestCreateCheckoutSession_Failures(t *testing.T) {
	t.Parallel()

	t.Run("provider rejects the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"no such price"}}`, http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk", "s", "c")
		_, err := client.CreateCheckoutSession(context.Background(), "user-42", "price_nope")
		assert.ErrorIs(t, err, ErrCheckoutFailed)
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk", "s", "c")
		_, err := client.CreateCheckoutSession(context.Background(), "user-42", "price_x")
		assert.ErrorIs(t, err, ErrCheckoutFailed)
	})

	t.Run("response without a url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"cs_123"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "sk", "s", "c")
		_, err := client.CreateCheckoutSession(context.Background(), "user-42", "price_x")
		assert.ErrorIs(t, err, ErrCheckoutFailed)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "sk", "s", "c")
		_, err := client.CreateCheckoutSession(context.Background(), "user-42", "price_x")
		assert.ErrorIs(t, err, ErrCheckoutFailed)
	})
}

func TestCheckoutHandler(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
	}))
	defer provider.Close()

	setupRouter := func(client *Client, userId string) *gin.Engine {
		handler := NewPaymentsHandler(client)
		router := gin.New()
		router.POST("/checkout", func(c *gin.Context) {
			if userId != "" {
				c.Set("id", userId)
			}
			handler.CheckoutHandler(c)
		})
		return router
	}

	client := NewClient(provider.URL, "sk", "s", "c")

	t.Run("success", func(t *testing.T) {
		router := setupRouter(client, "user-42")

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"priceId":"price_premium"}`))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"url":"https://pay.example/cs_1"}`, res.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		router := setupRouter(client, "")

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"priceId":"price_premium"}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("missing price id", func(t *testing.T) {
		router := setupRouter(client, "user-42")

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("provider failure maps to 502", func(t *testing.T) {
		badClient := NewClient("http://127.0.0.1:1", "sk", "s", "c")
		router := setupRouter(badClient, "user-42")

		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"priceId":"price_premium"}`))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusBadGateway, res.Code)
	})
}
