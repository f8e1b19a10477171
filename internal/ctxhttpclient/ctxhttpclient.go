package ctxhttpclient

import (
	"context"
	"net/http"
)

// context registration

var httpClientKey int

func WithHTTPClient(ctx context.Context, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, &httpClientKey, httpClient)
}

// GetHTTPClient returns the client every remote call should go through, so
// that caching and pacing apply to all of them.
func GetHTTPClient(ctx context.Context) *http.Client {
	if v := ctx.Value(&httpClientKey); v != nil {
		return v.(*http.Client)
	}

	return http.DefaultClient
}

// GetTransport is the round tripper of GetHTTPClient, for libraries that
// build their own client around one.
func GetTransport(ctx context.Context) http.RoundTripper {
	if rt := GetHTTPClient(ctx).Transport; rt != nil {
		return rt
	}

	return http.DefaultTransport
}

// middleware

func Register(httpClient *http.Client) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithHTTPClient(r.Context(), httpClient)))
	}
}
