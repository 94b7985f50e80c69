package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/mpapenbr/owlracer-agent-go/log"
)

// WaitForTCP waits until addr accepts connections, timeout is reached or ctx
// is done.
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	log.Debug("wait for tcp connection",
		log.String("addr", addr),
		log.String("timeout", timeout.String()))
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.Debug("tcp connection successful",
				log.String("addr", addr),
				log.String("duration", time.Since(start).String()))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s could not be reached after %v: %w",
				addr, time.Since(start).Round(time.Millisecond), err)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// ExtractFromServiceURL returns host:port of an http(s) URL.
// Missing ports are derived from the scheme.
func ExtractFromServiceURL(serviceURL string) string {
	u, err := url.Parse(serviceURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if port := u.Port(); port != "" {
		return net.JoinHostPort(u.Hostname(), port)
	}
	switch u.Scheme {
	case "https":
		return net.JoinHostPort(u.Hostname(), "443")
	case "http":
		return net.JoinHostPort(u.Hostname(), "80")
	}
	return ""
}
