package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// Probe signatures seen against a JSON API in the wild. Matching a pattern
// only raises a counter and a log line; requests are never blocked on it.
var suspiciousPatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh",
	"wp-admin", "phpmyadmin", "admin.php", "config.php",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb",
	"scanner", "crawler", "spider", "scraper",
}

var unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

// maxURLLength bounds request URLs; longer ones are treated as probe noise.
const maxURLLength = 2048

// DetectionMetrics tracks security detection counters.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags suspicious requests and resolves client IPs behind
// trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	invalidIPs atomic.Int64

	trustedProxies []*net.IPNet
}

// Private ranges plus loopback; the default when no proxies are configured.
var defaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// NewDetector builds a detector trusting forwarded headers only from the
// given proxy CIDRs. An empty list falls back to loopback and private
// ranges.
func NewDetector(trustedCIDRs ...string) (*Detector, error) {
	if len(trustedCIDRs) == 0 {
		trustedCIDRs = defaultTrustedProxies
	}

	d := &Detector{}
	for _, cidr := range trustedCIDRs {
		if err := d.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AddTrustedProxy extends the set of networks whose forwarded headers are
// believed.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// DetectSuspiciousRequest reports whether the request matches a known probe
// signature and bumps the counter when it does.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !d.isSuspicious(r) {
		return false
	}
	d.suspicious.Add(1)
	return true
}

func (d *Detector) isSuspicious(r *http.Request) bool {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(target, pattern) {
			return true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	for _, method := range unusualMethods {
		if r.Method == method {
			return true
		}
	}

	if len(r.URL.String()) > maxURLLength {
		return true
	}

	// Two forwarding headers plus a long hop chain smells like header
	// manipulation.
	if r.Header.Get("X-Forwarded-For") != "" && r.Header.Get("X-Real-IP") != "" {
		if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
			return true
		}
	}

	return false
}

// ExtractClientIP resolves the real client address. Forwarded headers are
// honored only when the direct peer is a trusted proxy; anything that fails
// to parse falls back to the connection address.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirect := net.ParseIP(directIP)
	if parsedDirect == nil {
		d.invalidIPs.Add(1)
		return directIP
	}

	if !d.isTrustedProxy(parsedDirect) {
		return directIP
	}

	// X-Forwarded-For lists client first, proxies after.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
		d.invalidIPs.Add(1)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		d.invalidIPs.Add(1)
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIPs.Load(),
	}
}
