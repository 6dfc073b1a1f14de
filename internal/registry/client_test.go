package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthguard/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNationalCode(t *testing.T) {
	assert.Equal(t, "654321", NationalCode("8470006543210"))
	assert.Equal(t, "8470006543", NationalCode("8470006543"))
	assert.Equal(t, "5012345678900", NationalCode("5012345678900"))
	assert.Equal(t, "712345", NationalCode("712345"))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.HTTPClientConfig{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
}

func TestLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/medicamentos", r.URL.Path)
		if r.URL.Query().Get("cn") != "654321" {
			_, _ = w.Write([]byte(`{"resultados":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultados":[{"nregistro":"62345","nombre":"IBUPROFENO 600 MG, COMPRIMIDOS","labtitular":"LABORATORIOS X"}]}`))
	})

	e, err := c.Lookup(context.Background(), "8470006543210")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "IBUPROFENO 600 MG, COMPRIMIDOS", e.Name)
	assert.Equal(t, "LABORATORIOS X", e.Holder)

	e, err = c.Lookup(context.Background(), "999999")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestLookup_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Lookup(context.Background(), "712345")
	assert.Error(t, err)
}
