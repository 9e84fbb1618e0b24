package cmd

import (
	"os"
	"testing"
)

func TestValidateAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"port only", ":8000", false},
		{"localhost", "localhost:8000", false},
		{"loopback ip", "127.0.0.1:8000", false},
		{"all interfaces", "0.0.0.0:8000", false},
		{"ipv6 loopback", "[::1]:8000", false},
		{"auto-assign port", ":0", false},
		{"max port", ":65535", false},
		{"missing port", "localhost", true},
		{"empty", "", true},
		{"port too large", ":65536", true},
		{"non-numeric port", ":abc", true},
		{"host with whitespace", "bad host:8000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestParseServeAddr(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"default", []string{"ragd", "serve"}, "127.0.0.1:8000", false},
		{"positional", []string{"ragd", "serve", ":9000"}, ":9000", false},
		{"flag", []string{"ragd", "serve", "--addr", ":9100"}, ":9100", false},
		{"single dash flag", []string{"ragd", "serve", "-addr", "localhost:9200"}, "localhost:9200", false},
		{"invalid positional", []string{"ragd", "serve", "not-an-addr"}, "", true},
		{"invalid flag value", []string{"ragd", "serve", "--addr", ":99999"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			os.Args = tt.args
			defer func() { os.Args = oldArgs }()

			got, err := parseServeAddr("127.0.0.1:8000")
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseServeAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseServeAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}
