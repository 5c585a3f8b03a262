package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Common size limits. Nothing on this storefront takes an upload; the
// biggest bodies are checkout forms and Stripe webhook events, so the
// default cap is deliberately small.
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize caps request bodies (1MB).
	DefaultMaxBodySize = 1 * MB
)

// Common timeout values.
const (
	// DefaultTimeout is the default request timeout. It leaves headroom
	// for the checkout return path, which may poll for a webhook-created
	// order before falling back.
	DefaultTimeout = 30 * time.Second

	// ShortTimeout is for quick operations.
	ShortTimeout = 5 * time.Second
)

// MaxBodySize rejects bodies over maxBytes with 413 and wraps the rest
// in a MaxBytesReader so a lying Content-Length cannot sneak past.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				respondTooLarge(w, r, "Request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds request processing. A handler that overruns gets its
// context canceled; if nothing has been written yet the client receives
// 503, otherwise the response is truncated.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			tw := &timeoutWriter{
				ResponseWriter: w,
				done:           done,
			}

			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()

				if !tw.wroteHeader {
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte("Request timeout"))
				}
			}
		})
	}
}

// timeoutWriter tracks whether the handler has started responding, so
// the timeout branch knows whether a 503 is still possible.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	wroteHeader bool
	done        chan struct{}
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.wroteHeader {
		return
	}

	select {
	case <-tw.done:
		return
	default:
		tw.wroteHeader = true
		tw.ResponseWriter.WriteHeader(code)
	}
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	select {
	case <-tw.done:
		return 0, context.DeadlineExceeded
	default:
		if !tw.wroteHeader {
			tw.wroteHeader = true
			tw.ResponseWriter.WriteHeader(http.StatusOK)
		}
		return tw.ResponseWriter.Write(b)
	}
}
