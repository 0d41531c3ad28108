package handler_test

import (
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"clinic/internal/auth"
	"clinic/internal/router"
)

type ctxValue struct {
	key   string
	value interface{}
}

func withUser(v interface{}) ctxValue     { return ctxValue{auth.ContextKeyUser, v} }
func withToken(v string) ctxValue         { return ctxValue{auth.ContextKeyToken, v} }
func withIdentity(v interface{}) ctxValue { return ctxValue{auth.ContextKeyIdentity, v} }

// call mounts h on a fresh echo with the production validator and error
// handler, then serves one request through it.
func call(method, route, target, body string, h echo.HandlerFunc, values ...ctxValue) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = router.NewValidator()
	e.HTTPErrorHandler = router.NewHTTPErrorHandler(zerolog.New(io.Discard))
	e.Add(method, route, func(c echo.Context) error {
		for _, v := range values {
			c.Set(v.key, v.value)
		}
		return h(c)
	})

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
