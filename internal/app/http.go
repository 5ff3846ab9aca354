package app

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// sharedTransport pools connections across the search, page, robots and LLM
// clients of a run.
var sharedTransport = sync.OnceValue(func() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
})

// newHTTPClient returns a client on the shared transport. timeout bounds
// the whole exchange and zero leaves it to the caller's context; fetch.Client
// applies its own per-page deadline on top.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: sharedTransport(), Timeout: timeout}
}
