package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// ClientIP returns the originating address of r. Proxy headers are trusted in
// the order CF-Connecting-IP, X-Forwarded-For (first hop), X-Real-IP, then
// the socket peer.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return peerIP(r)
}

func peerIP(r *http.Request) string {
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// Proxies resolves client addresses for security decisions such as login
// throttling. Forwarding headers are honored only when the socket peer is a
// trusted proxy, so a direct client cannot pick its own address.
type Proxies struct {
	trusted []netip.Prefix
}

// ParseProxies accepts IP addresses and CIDR ranges. Empty entries are
// skipped.
func ParseProxies(entries []string) (*Proxies, error) {
	p := &Proxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			prefix, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			p.trusted = append(p.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		p.trusted = append(p.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return p, nil
}

func (p *Proxies) ClientIP(r *http.Request) string {
	peer := peerIP(r)
	if p.trusts(peer) {
		return ClientIP(r)
	}
	return peer
}

func (p *Proxies) trusts(ip string) bool {
	if p == nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Hasher turns client addresses into visitor identifiers. The date is part of
// the hashed message, so one address maps to a new identifier every UTC day
// and raw addresses never need to be stored.
type Hasher struct {
	key []byte
}

func NewHasher(salt string) *Hasher {
	return &Hasher{key: []byte(salt)}
}

// VisitorID returns 16 hex characters of HMAC-SHA256(salt, ip|YYYY-MM-DD).
func (h *Hasher) VisitorID(ip string, t time.Time) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(ip + "|" + t.UTC().Format(time.DateOnly)))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}
