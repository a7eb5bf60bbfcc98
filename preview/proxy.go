// Package preview forwards /preview/ to the Slidev dev server.
package preview

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"deckeditor/pkg/logger"
)

const Prefix = "/preview/"

// NewProxy returns a reverse proxy that strips Prefix before forwarding to target.
// Websocket upgrades (Slidev's HMR channel) pass through.
func NewProxy(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid preview url %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid preview url %q: scheme and host are required", target)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Sugar.Warnf("Preview proxy error for %s: %v", r.URL.Path, err)
			http.Error(w, "Preview server unavailable", http.StatusBadGateway)
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + strings.TrimPrefix(r.URL.Path, Prefix)
		r2.URL.RawPath = ""
		proxy.ServeHTTP(w, r2)
	}), nil
}
