package reconcile

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds one registry request so a hung registry fails
// the file instead of the CI job.
const DefaultRequestTimeout = 60 * time.Second

var (
	defaultClientOnce sync.Once
	defaultClient     *http.Client
)

// sharedClient returns the process-wide registry client. Files are synced
// one after another against a single host, so one keep-alive connection is
// reused across the whole batch.
func sharedClient() *http.Client {
	defaultClientOnce.Do(func() {
		dialer := &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		defaultClient = &http.Client{
			Timeout: DefaultRequestTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          2,
				MaxIdleConnsPerHost:   1,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		}
	})
	return defaultClient
}
