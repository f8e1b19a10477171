package ctxhttpclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopTransport struct{}

func (nopTransport) RoundTrip(*http.Request) (*http.Response, error) { return nil, nil }

func TestGetTransport(t *testing.T) {
	a := assert.New(t)

	a.Equal(http.DefaultClient, GetHTTPClient(context.Background()))
	a.Equal(http.DefaultTransport, GetTransport(context.Background()))

	c := &http.Client{Transport: nopTransport{}}
	ctx := WithHTTPClient(context.Background(), c)

	a.Same(c, GetHTTPClient(ctx))
	a.Equal(nopTransport{}, GetTransport(ctx))
}
