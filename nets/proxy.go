package nets

import (
	"context"
	"net"
	"net/url"
	"os"
	"sync"

	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/modes"
	"golang.org/x/net/proxy"
)

// ProxyAddr is the proxy for model endpoints. Development processes never use one.
type ProxyAddr string

var _ configs.Configurable = ProxyAddr("")

func (ProxyAddr) ConfigKey() string {
	return "proxy_addr"
}

var proxyEnvs = []string{
	"ALL_PROXY", "all_proxy",
	"HTTPS_PROXY", "https_proxy",
	"HTTP_PROXY", "http_proxy",
}

func (Module) ProxyAddr(
	mode modes.Mode,
	loader configs.Loader,
	logger logs.Logger,
) ProxyAddr {
	if mode == modes.ModeDevelopment {
		return ""
	}
	addr, _ := configs.Lookup[ProxyAddr](loader)
	for _, key := range []string{"http_proxy", "socks_proxy"} {
		if addr != "" {
			break
		}
		addr = configs.First[ProxyAddr](loader, key)
	}
	for _, env := range proxyEnvs {
		if addr != "" {
			break
		}
		addr = ProxyAddr(os.Getenv(env))
	}
	if addr != "" {
		logger.Info("proxy", "addr", addr)
	}
	return addr
}

type GetProxyURL func() (*url.URL, error)

func (Module) GetProxyURL(
	addr ProxyAddr,
) GetProxyURL {
	return sync.OnceValues(func() (*url.URL, error) {
		if addr == "" {
			return nil, nil
		}
		u, err := url.Parse(string(addr))
		if err != nil {
			return nil, err
		}
		// x/net/proxy only knows socks5
		if u.Scheme == "socks" {
			u.Scheme = "socks5"
		}
		return u, nil
	})
}

type GetProxyDialer func() (Dialer, error)

func (Module) GetProxyDialer(
	getURL GetProxyURL,
) GetProxyDialer {
	return sync.OnceValues(func() (Dialer, error) {
		direct := new(net.Dialer)
		u, err := getURL()
		if err != nil || u == nil {
			return direct, err
		}
		dialer, err := proxy.FromURL(u, direct)
		if err != nil {
			return nil, err
		}
		if d, ok := dialer.(Dialer); ok {
			return d, nil
		}
		return DialerFunc(func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}), nil
	})
}
