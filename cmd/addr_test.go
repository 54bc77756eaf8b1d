package cmd

import "testing"

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080", want: ":8080"},
		{name: "bare port", addr: "8080", want: ":8080"},
		{name: "localhost", addr: "localhost:8080", want: "localhost:8080"},
		{name: "loopback IP", addr: "127.0.0.1:3000", want: "127.0.0.1:3000"},
		{name: "all interfaces", addr: "0.0.0.0:8080", want: "0.0.0.0:8080"},
		{name: "ipv6 loopback", addr: "[::1]:8080", want: "[::1]:8080"},
		{name: "auto-assign port", addr: ":0", want: ":0"},
		{name: "max port", addr: ":65535", want: ":65535"},
		{name: "bare hostname", addr: "localhost", wantErr: true},
		{name: "empty", addr: "", wantErr: true},
		{name: "non-numeric port", addr: ":http", wantErr: true},
		{name: "port out of range", addr: ":70000", wantErr: true},
		{name: "whitespace host", addr: "bad host:8080", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("normalizeAddr(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestResolveListenAddr(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		configured string
		want       string
		wantErr    bool
	}{
		{name: "configured default", args: nil, configured: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "positional beats config", args: []string{":9090"}, configured: "127.0.0.1:8080", want: ":9090"},
		{name: "flag beats config", args: []string{"-addr", ":9090"}, configured: "127.0.0.1:8080", want: ":9090"},
		{name: "bare port positional", args: []string{"9090"}, configured: "127.0.0.1:8080", want: ":9090"},
		{name: "bad configured default", args: nil, configured: "nonsense", wantErr: true},
		{name: "bad positional", args: []string{"not:an:addr"}, configured: "127.0.0.1:8080", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveListenAddr(tt.args, tt.configured)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveListenAddr(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("resolveListenAddr(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
