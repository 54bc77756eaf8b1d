package security

import (
	"strings"
	"testing"
)

func TestURLValidate(t *testing.T) {
	v := NewURL()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"public https", "https://example.com/page", false},
		{"public http", "http://example.com", false},
		{"file scheme", "file:///etc/passwd", true},
		{"ftp scheme", "ftp://example.com", true},
		{"localhost", "http://localhost:8080", true},
		{"loopback ip", "http://127.0.0.1/", true},
		{"private 10.x", "http://10.0.0.5/", true},
		{"private 192.168.x", "http://192.168.1.1/admin", true},
		{"private 172.16.x", "http://172.16.0.1/", true},
		{"link local metadata", "http://169.254.169.254/latest/meta-data/", true},
		{"gcp metadata hostname", "http://metadata.google.internal/computeMetadata/v1/", true},
		{"ipv6 loopback", "http://[::1]/", true},
		{"ipv6 mapped loopback", "http://[::ffff:127.0.0.1]/", true},
		{"unspecified", "http://0.0.0.0/", true},
		{"empty host", "http:///path", true},
		{"garbage", "://not-a-url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestURLClient(t *testing.T) {
	v := NewURL()

	client := v.Client()
	if client == nil {
		t.Fatal("Client() returned nil")
	}
	if client.Timeout == 0 {
		t.Error("expected a non-zero client timeout")
	}
}

func TestURLMaxBodySize(t *testing.T) {
	v := NewURL()
	if v.MaxBodySize() <= 0 {
		t.Errorf("MaxBodySize() = %d, want > 0", v.MaxBodySize())
	}
}

func TestPathValidate(t *testing.T) {
	tmp := t.TempDir()

	v, err := NewPath([]string{tmp})
	if err != nil {
		t.Fatalf("NewPath() error: %v", err)
	}

	t.Run("allowed directory", func(t *testing.T) {
		got, err := v.Validate(tmp + "/notes.txt")
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if !strings.HasPrefix(got, tmp) {
			t.Errorf("Validate() = %q, want prefix %q", got, tmp)
		}
	})

	t.Run("traversal escapes", func(t *testing.T) {
		if _, err := v.Validate(tmp + "/../../etc/passwd"); err == nil {
			t.Error("expected traversal to be rejected")
		}
	})

	t.Run("absolute path outside", func(t *testing.T) {
		if _, err := v.Validate("/etc/shadow"); err == nil {
			t.Error("expected outside path to be rejected")
		}
	})
}
