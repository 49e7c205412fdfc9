package logging_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/logging"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewWithOutput(&buf, "debug", "production")

	l.WithField("order_id", 7).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, float64(7), line["order_id"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l := logging.NewWithOutput(&bytes.Buffer{}, "nope", "development")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewWithOutput(&buf, "info", "production")

	e := echo.New()
	e.Use(logging.RequestLogger(l))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusTeapot, "x")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/ping", line["path"])
	assert.Equal(t, "warning", line["level"])
}
