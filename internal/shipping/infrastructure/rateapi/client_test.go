package rateapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryTimeShapes(t *testing.T) {
	cases := []struct {
		in    string
		days  int
		shape deliveryShape
	}{
		{`5`, 5, shapeNumber},
		{`5.2`, 6, shapeNumber},
		{`"8"`, 8, shapeString},
		{`" 3 "`, 3, shapeString},
		{`{"days": 4}`, 4, shapeObject},
		{`{"days": "9"}`, 9, shapeObject},
	}
	for _, tc := range cases {
		var d DeliveryTime
		require.NoError(t, json.Unmarshal([]byte(tc.in), &d), tc.in)
		assert.Equal(t, tc.days, d.Days, tc.in)
		assert.Equal(t, tc.shape, d.Shape, tc.in)
	}
}

func TestDeliveryTimeRejects(t *testing.T) {
	for _, in := range []string{`""`, `"soon"`, `-1`, `{}`, `{"days": null}`, `{"days": {"days": 1}}`, `true`, `[1]`} {
		var d DeliveryTime
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}
}

func TestPriceShapes(t *testing.T) {
	for in, want := range map[string]string{`23.5`: "23.5", `"23.50"`: "23.5", `"  7 "`: "7", `0`: "0"} {
		var p Price
		require.NoError(t, json.Unmarshal([]byte(in), &p), in)
		assert.Equal(t, want, p.String(), in)
	}
	for _, in := range []string{`""`, `"abc"`, `-3`, `{}`} {
		var p Price
		assert.Error(t, json.Unmarshal([]byte(in), &p), in)
	}
}

func TestQuoteSendsCalculateRequest(t *testing.T) {
	var got calculateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, calculatePath, r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "PAC", "error": "Serviço indisponível para o trecho."},
			{"id": 2, "name": "SEDEX", "price": "42.10", "delivery_time": {"days": 2}},
			{"id": 3, "name": ".Com", "price": 30, "delivery_time": 4}
		]`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", Token: "secret-token", Services: []string{"1", "2", "3"}})
	opt, err := c.Quote(context.Background(), "01001000", "20040030")
	require.NoError(t, err)

	assert.Equal(t, "SEDEX", opt.Service)
	assert.Equal(t, "42.1", opt.Price.String())
	assert.Equal(t, 2, opt.DeliveryDays)

	assert.Equal(t, "01001000", got.From.PostalCode)
	assert.Equal(t, "20040030", got.To.PostalCode)
	assert.Equal(t, packageSpec{Height: 4, Width: 12, Length: 17, Weight: 0.3}, got.Package)
	assert.Equal(t, options{}, got.Options)
	assert.Equal(t, "1,2,3", got.Services)
}

func TestQuoteFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"Unauthenticated."}`, http.StatusUnauthorized)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"not an array": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"price": 10}`))
		},
		"unparseable option": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"name": "PAC", "price": "ten", "delivery_time": 3}]`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := New(Config{BaseURL: srv.URL, Token: "t"}).Quote(context.Background(), "01001000", "20040030")
			assert.Error(t, err)
		})
	}
}

func TestQuoteEmptyIsNoOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name": "PAC", "error": "fora de área"}]`))
	}))
	defer srv.Close()
	_, err := New(Config{BaseURL: srv.URL, Token: "t"}).Quote(context.Background(), "01001000", "20040030")
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestQuoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()
	_, err := New(Config{BaseURL: srv.URL, Token: "t", Timeout: 20 * time.Millisecond}).Quote(context.Background(), "01001000", "20040030")
	assert.Error(t, err)
}

func TestConfigured(t *testing.T) {
	assert.False(t, New(Config{BaseURL: "https://example.test"}).Configured())
	assert.True(t, New(Config{BaseURL: "https://example.test", Token: "t"}).Configured())
}
