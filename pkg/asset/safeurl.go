package asset

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// IsSafeURL は参照画像の URL が http(s) で、内部ネットワークを指していないことを確認します。
func IsSafeURL(rawURL string) (bool, error) {
	if err := checkURL(context.Background(), net.DefaultResolver, rawURL); err != nil {
		return false, err
	}
	return true, nil
}

// checkURL はホストを解決し、解決先の全アドレスを検査します。IP リテラルは解決しません。
func checkURL(ctx context.Context, resolver *net.Resolver, rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed", u.Scheme)
	}

	host := u.Hostname()
	addrs := []netip.Addr{}
	if addr, err := netip.ParseAddr(host); err == nil {
		addrs = append(addrs, addr)
	} else {
		resolved, err := resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", host, err)
		}
		addrs = resolved
	}

	for _, addr := range addrs {
		if blockedAddr(addr) {
			return fmt.Errorf("%s resolves to restricted address %s", host, addr)
		}
	}
	return nil
}

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast()
}
