package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// transport — добавляет apikey и X-Request-ID к каждому запросу и
// логирует метод/путь/статус/длительность. Тела не логируются: токены
type transport struct {
	anonKey string
	next    http.RoundTripper
}

func newTransport(anonKey string) http.RoundTripper {
	return &transport{anonKey: anonKey, next: http.DefaultTransport}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	out := req.Clone(req.Context())
	out.Header.Set("apikey", t.anonKey)
	reqID := out.Header.Get(headerRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
		out.Header.Set(headerRequestID, reqID)
	}

	res, err := t.next.RoundTrip(out)
	dur := time.Since(start)
	if err != nil {
		slog.Error("auth.http:", slog.Any("err", err),
			slog.String("req_id", reqID),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)
		return nil, err
	}

	slog.Info("auth http request",
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"duration", dur.String(),
	)

	return res, nil
}
