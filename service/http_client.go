package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/songquanpeng/litegate/common/config"
	"golang.org/x/net/proxy"
)

var (
	proxyClientLock sync.Mutex
	proxyClients    = make(map[string]*http.Client)
)

// relayTimeout is RELAY_TIMEOUT, or 15 minutes so long generations are not cut off.
func relayTimeout() time.Duration {
	if config.RelayTimeout > 0 {
		return time.Duration(config.RelayTimeout) * time.Second
	}
	return 15 * time.Minute
}

// GetHttpClientWithProxy returns a direct client, or a proxy-enabled one when proxyURL is provided.
func GetHttpClientWithProxy(proxyURL string) (*http.Client, error) {
	return NewProxyHttpClient(proxyURL)
}

// ResetProxyClientCache drops cached clients so the next call rebuilds them.
func ResetProxyClientCache() {
	proxyClientLock.Lock()
	defer proxyClientLock.Unlock()
	for _, client := range proxyClients {
		if transport, ok := client.Transport.(*http.Transport); ok && transport != nil {
			transport.CloseIdleConnections()
		}
	}
	proxyClients = make(map[string]*http.Client)
}

// NewProxyHttpClient builds (and caches) a client for proxyURL. http, https,
// socks5 and socks5h proxies are supported.
func NewProxyHttpClient(proxyURL string) (*http.Client, error) {
	proxyClientLock.Lock()
	if client, ok := proxyClients[proxyURL]; ok {
		proxyClientLock.Unlock()
		return client, nil
	}
	proxyClientLock.Unlock()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		ForceAttemptHTTP2:   true,
		Proxy:               http.ProxyFromEnvironment,
	}

	if proxyURL != "" {
		parsedURL, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		switch parsedURL.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(parsedURL)
		case "socks5", "socks5h":
			var auth *proxy.Auth
			if parsedURL.User != nil {
				auth = &proxy.Auth{
					User:     parsedURL.User.Username(),
					Password: "",
				}
				if password, ok := parsedURL.User.Password(); ok {
					auth.Password = password
				}
			}
			// DNS lookups go through the proxy as well, so socks5 behaves like socks5h.
			dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
			if err != nil {
				return nil, err
			}
			transport.Proxy = nil
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
					return contextDialer.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s, must be http, https, socks5 or socks5h", parsedURL.Scheme)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   relayTimeout(),
	}
	proxyClientLock.Lock()
	proxyClients[proxyURL] = client
	proxyClientLock.Unlock()
	return client, nil
}
