package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "localhost,.internal")

	tests := []struct {
		url  string
		want string
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "http://secure-proxy:3128"},
		{"http://api.example.com/v1", "http://proxy:3128"},
		{"http://localhost:11434/api/generate", ""},
		{"https://llm.corp.internal/v1", ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodGet, tt.url, nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.url, err)
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("proxy(%s) = %v, want no proxy", tt.url, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("proxy(%s) = %v, want %s", tt.url, got, tt.want)
		}
	}
}
