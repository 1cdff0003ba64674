package llm

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// transport 管理厂商使用的 http.Client。
// 代理变更时整体替换 client，进行中的请求继续使用旧 client。
type transport struct {
	mu       sync.RWMutex
	vendor   string
	timeout  time.Duration
	proxy    *url.URL
	client   *http.Client
	onChange func(*http.Client)
}

func newTransport(vendor string, timeout time.Duration, proxyHost string, proxyPort int) (*transport, error) {
	t := &transport{vendor: vendor, timeout: timeout}
	if proxyHost != "" {
		u, err := proxyURL(vendor, proxyHost, proxyPort)
		if err != nil {
			return nil, err
		}
		t.proxy = u
	}
	t.client = buildHTTPClient(t.timeout, t.proxy)
	return t, nil
}

// buildHTTPClient 构造 client；不设置整体超时以免截断长时间的流式响应，只限制等待响应头的时间
func buildHTTPClient(timeout time.Duration, proxy *url.URL) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = http.ProxyFromEnvironment
	if proxy != nil {
		base.Proxy = http.ProxyURL(proxy)
	}
	if timeout > 0 {
		base.ResponseHeaderTimeout = timeout
	}
	return &http.Client{Transport: base}
}

func proxyURL(vendor, host string, port int) (*url.URL, error) {
	if host == "" || port <= 0 || port > 65535 {
		return nil, Permanent(vendor, 0, errInvalidProxy)
	}
	return &url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port))}, nil
}

// Client 返回当前 client
func (t *transport) Client() *http.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client
}

// SetProxy 启用 HTTP 代理
func (t *transport) SetProxy(host string, port int) error {
	u, err := proxyURL(t.vendor, host, port)
	if err != nil {
		return err
	}
	t.swap(u)
	return nil
}

// DisableProxy 关闭代理
func (t *transport) DisableProxy() {
	t.swap(nil)
}

// ProxyEnabled 是否启用了代理
func (t *transport) ProxyEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.proxy != nil
}

func (t *transport) swap(proxy *url.URL) {
	t.mu.Lock()
	t.proxy = proxy
	t.client = buildHTTPClient(t.timeout, proxy)
	client, onChange := t.client, t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(client)
	}
}
