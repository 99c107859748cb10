package security

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestDetector(t *testing.T, cidrs ...string) *Detector {
	t.Helper()
	d, err := NewDetector(cidrs...)
	if err != nil {
		t.Fatalf("NewDetector() error: %v", err)
	}
	return d
}

func TestNewDetectorRejectsBadCIDR(t *testing.T) {
	if _, err := NewDetector("10.0.0.0/8", "garbage"); err == nil {
		t.Error("NewDetector() should reject an unparseable CIDR")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		method     string
		userAgent  string
		suspicious bool
	}{
		{name: "plain api request", target: "/api/transactions", method: "GET"},
		{name: "path traversal", target: "/api/../etc/passwd", method: "GET", suspicious: true},
		{name: "env probe", target: "/.env", method: "GET", suspicious: true},
		{name: "wordpress probe", target: "/wp-admin/setup.php", method: "GET", suspicious: true},
		{name: "sql injection in query", target: "/api/transactions?q=union%20select", method: "GET", suspicious: true},
		{name: "scanner user agent", target: "/api/transactions", method: "GET", userAgent: "sqlmap/1.7", suspicious: true},
		{name: "unusual method", target: "/api/transactions", method: "TRACE", suspicious: true},
		{name: "oversized url", target: "/api/transactions?pad=" + strings.Repeat("a", 2100), method: "GET", suspicious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.userAgent != "" {
				req.Header.Set("User-Agent", tt.userAgent)
			}

			if got := d.DetectSuspiciousRequest(req); got != tt.suspicious {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.suspicious)
			}
		})
	}
}

func TestDetectSuspiciousRequestCountsHits(t *testing.T) {
	d := newTestDetector(t)

	d.DetectSuspiciousRequest(httptest.NewRequest("GET", "/.env", nil))
	d.DetectSuspiciousRequest(httptest.NewRequest("GET", "/api/transactions", nil))

	if got := d.GetMetrics().SuspiciousRequests; got != 1 {
		t.Errorf("SuspiciousRequests = %d, want 1", got)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		proxies    []string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.9:4421",
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded header from trusted proxy",
			remoteAddr: "10.1.2.3:80",
			xff:        "203.0.113.9, 10.1.2.3",
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded header from untrusted peer is ignored",
			remoteAddr: "203.0.113.9:4421",
			xff:        "198.51.100.7",
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip from trusted proxy",
			remoteAddr: "127.0.0.1:9000",
			xri:        "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "configured proxy range overrides defaults",
			remoteAddr: "10.1.2.3:80",
			xff:        "203.0.113.9",
			proxies:    []string{"198.51.100.0/24"},
			want:       "10.1.2.3",
		},
		{
			name:       "unparseable forwarded ip falls back",
			remoteAddr: "127.0.0.1:9000",
			xff:        "not-an-ip",
			want:       "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, tt.proxies...)
			req := httptest.NewRequest("GET", "/api/transactions", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractClientIPCountsInvalidForwarded(t *testing.T) {
	d := newTestDetector(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:9000"
	req.Header.Set("X-Forwarded-For", "not-an-ip")

	d.ExtractClientIP(req)

	if got := d.GetMetrics().InvalidIPAttempts; got != 1 {
		t.Errorf("InvalidIPAttempts = %d, want 1", got)
	}
}
