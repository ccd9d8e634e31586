package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
)

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate presented by the source endpoint.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	AuthType string `json:"auth_type"`
	Status   string `json:"status"` // valid | expiring | expired | unreachable
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"`
	DaysLeft int    `json:"days_left"`
}

// Check dials the TLS endpoint for the given source and returns a CertStatus
// describing the leaf certificate.
//
// Returns nil for non-HTTPS endpoints: there is no TLS certificate to inspect.
// The dial is bounded by a 10-second timeout.
func Check(ctx context.Context, src config.Source) *CertStatus {
	u, err := url.Parse(src.Endpoint)
	if src.Type != "http" || err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{
		Endpoint: src.Endpoint,
		AuthType: authType(src.Auth),
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		// No explicit port in the URL; append the HTTPS default.
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = "unreachable"
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = "unreachable"
		return cs
	}

	leaf := peerCerts[0]
	daysLeft := time.Until(leaf.NotAfter).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		cs.Status = "expired"
	case daysLeft <= 30:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}
	return cs
}

func authType(a config.AuthConfig) string {
	switch {
	case a.Key() == "":
		return "none"
	case a.Header != "":
		return "key+header"
	default:
		return "key"
	}
}

// Cache memoises Check for a source so the API does not dial on every
// request.
type Cache struct {
	src config.Source
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	last    *CertStatus
	checked time.Time
}

// NewCache returns a Cache that re-checks at most once per ttl.
func NewCache(src config.Source, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// Status returns the cached status, dialing again once it has expired.
func (c *Cache) Status(ctx context.Context) *CertStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.checked.IsZero() && c.now().Sub(c.checked) < c.ttl {
		return c.last
	}
	c.last = Check(ctx, c.src)
	c.checked = c.now()
	return c.last
}
