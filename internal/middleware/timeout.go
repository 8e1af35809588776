package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"enma/internal/apperr"
)

// Timeout bounds the rest of the chain by d. The chain runs on a detached
// context whose output is buffered; when d elapses the request fails with
// apperr.ErrRequestTimeout at once and anything written later is dropped.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeoutCause(c.Request().Context(), d, apperr.ErrRequestTimeout)
			defer cancel()

			buf := newBufferedWriter()
			dc := detach(c, ctx, buf)

			done := make(chan error, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- fmt.Errorf("panic: %v", r)
					}
				}()
				done <- next(dc)
			}()

			select {
			case err := <-done:
				if ferr := buf.flushTo(c.Response()); ferr != nil && err == nil {
					err = ferr
				}
				return err
			case <-ctx.Done():
				return context.Cause(ctx)
			}
		}
	}
}

func detach(c echo.Context, ctx context.Context, w http.ResponseWriter) echo.Context {
	dc := c.Echo().NewContext(c.Request().WithContext(ctx), w)
	dc.SetPath(c.Path())
	dc.SetParamNames(c.ParamNames()...)
	dc.SetParamValues(c.ParamValues()...)
	return dc
}

type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

// Flush is a no-op; output is released only once the chain has finished.
func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) flushTo(res *echo.Response) error {
	if w.status == 0 {
		return nil
	}
	dst := res.Header()
	for k, v := range w.header {
		dst[k] = v
	}
	res.WriteHeader(w.status)
	_, err := w.body.WriteTo(res)
	return err
}
