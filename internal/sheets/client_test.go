package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
)

func TestSubmit_OK(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	err := c.Submit(context.Background(), map[string]string{"tradingview": "alice_tv"})
	require.NoError(t, err)
	assert.Equal(t, "alice_tv", got["tradingview"])
}

func TestSubmit_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	err := c.Submit(context.Background(), map[string]string{})

	var apiErr *berrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, berrors.IsRetryable(err))
}

func TestFetchExpired_Array(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "expired", r.URL.Query().Get("action"))
		w.Write([]byte(`[{"telegram_id":"111"},{"telegram_id":"222","tradingview":"bob_tv"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	users, err := c.FetchExpired(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob_tv", users[1].TradingView)
}

func TestFetchExpired_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	users, err := c.FetchExpired(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFetchExpired_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"missing column","headers_found":["tarih","plan"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.FetchExpired(context.Background())

	var sheetErr *SheetError
	require.ErrorAs(t, err, &sheetErr)
	assert.Equal(t, "missing column", sheetErr.Message)
	assert.Contains(t, sheetErr.Error(), "tarih")
}

func TestFetchExpired_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.FetchExpired(context.Background())
	var apiErr *berrors.APIError
	assert.ErrorAs(t, err, &apiErr)
}
