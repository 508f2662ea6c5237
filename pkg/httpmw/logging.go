package httpmw

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hdxil/pcm-core/pkg/appctx"
	"github.com/rs/zerolog"
)

// WithLogging returns a middleware that attaches a request-scoped logger
// and trace id to the context and logs the request/response at info level,
// mirroring the teacher's appctx+log interceptor pair
// (internal/http/interceptors/{appctx,log}).
func WithLogging(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trace := uuid.NewString()
			sub := base.With().Str("trace", trace).Logger()
			ctx := appctx.WithLogger(r.Context(), &sub)
			ctx = appctx.WithTrace(ctx, trace)
			r = r.WithContext(ctx)

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			sub.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
