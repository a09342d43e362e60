// Package probe checks whether extracted business websites actually answer.
// Small shops park dead domains behind their listings; flagging those early
// saves whoever consumes the export a manual pass.
package probe

import (
	"context"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/rotisserie/eris"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// Verifier issues lightweight GET probes with a Chrome TLS fingerprint.
// Shared-hosting frontends commonly reject the default Go fingerprint, which
// would mark perfectly healthy sites as dead.
type Verifier struct {
	http *http.Client
}

func NewVerifier() *Verifier {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}

			// Chrome TLS spec with ALPN forced to HTTP/1.1; the transport
			// cannot speak h2 over a custom dialer.
			spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
			if err != nil {
				conn.Close()
				return nil, err
			}
			for i, ext := range spec.Extensions {
				if alpn, ok := ext.(*utls.ALPNExtension); ok {
					alpn.AlpnProtocols = []string{"http/1.1"}
					spec.Extensions[i] = alpn
					break
				}
			}

			tlsConn := utls.UClient(conn, &utls.Config{
				ServerName: host,
			}, utls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, err
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}

			return tlsConn, nil
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Verifier{
		http: &http.Client{
			Transport: transport,
			Timeout:   15 * time.Second,
		},
	}
}

// Verify reports whether the site answered with a usable status. Redirects
// are followed; only a transport failure or a 4xx/5xx final status counts as
// dead. The error carries the reason for logging, alongside the flag.
func (v *Verifier) Verify(ctx context.Context, rawURL string) (bool, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return false, eris.New("probe: empty url")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, eris.Wrap(err, "probe: building request")
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,si;q=0.8")

	resp, err := v.http.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "probe: request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return false, eris.Errorf("probe: status %d", resp.StatusCode)
	}
	return true, nil
}
