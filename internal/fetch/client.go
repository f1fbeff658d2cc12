// Package fetch retrieves pages over HTTP, optionally through a proxy
// endpoint, and reports the status code alongside the body so callers can
// tell a blocked proxy from a dead one.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Engine fetches rawURL through proxyURL and returns the HTTP status code
// and the response body. An empty proxyURL means a direct connection.
type Engine interface {
	Get(ctx context.Context, rawURL, proxyURL string) (int, string, error)
}

// Client is the plain-HTTP engine. Every request builds a fresh transport
// with keep-alives disabled so no connection outlives the proxy it was
// opened through.
type Client struct {
	timeout        time.Duration
	userAgent      string
	acceptLanguage string
}

func NewClient(timeout time.Duration, userAgent, acceptLanguage string) *Client {
	return &Client{
		timeout:        timeout,
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
	}
}

func (c *Client) Get(ctx context.Context, rawURL, proxyURL string) (int, string, error) {
	transport, err := c.createTransport(proxyURL)
	if err != nil {
		return 0, "", fmt.Errorf("create transport: %w", err)
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Connection", "close")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, string(body), nil
}

func (c *Client) createTransport(proxyURL string) (*http.Transport, error) {
	// Base configuration with keep-alives disabled
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   c.timeout,
			KeepAlive: 0,
		}).DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// An empty endpoint dials directly.
	if proxyURL == "" {
		return transport, nil
	}

	endpoint, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy endpoint: %w", err)
	}

	switch endpoint.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(endpoint)

	default:
		// Handle SOCKS5 proxy
		var auth *proxy.Auth
		if endpoint.User != nil {
			password, _ := endpoint.User.Password()
			auth = &proxy.Auth{User: endpoint.User.Username(), Password: password}
		}
		socksDialer, err := proxy.SOCKS5("tcp", endpoint.Host, auth, &net.Dialer{
			Timeout: c.timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return socksDialer.Dial(network, addr)
		}
	}

	return transport, nil
}
