package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/carpool-identity/internal/config"
)

// recorder tees the response body into a bounded buffer.
type recorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Request().Method + " " + c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

func encodeEntry(e cachedResponse) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(raw []byte) (cachedResponse, bool) {
	var e cachedResponse
	if err := json.Unmarshal(raw, &e); err != nil || e.Status == 0 {
		return cachedResponse{}, false
	}
	return e, true
}

func (e cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range e.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(e.Status)
	_, err := c.Response().Write(e.Body)
	return err
}

// NewRedisCache replays cached 200 responses for read-only reference data
// such as the permission catalog. It must never wrap a route whose answer
// depends on the caller: authorization answers are always read live.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if e, ok := decodeEntry(raw); ok {
					return e.replay(c)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if raw, err := encodeEntry(cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()}); err == nil {
				// the client already has its answer; a failed write only costs a miss
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, raw, cfg.TTL).Err()
			}
			return nil
		}
	}
}
