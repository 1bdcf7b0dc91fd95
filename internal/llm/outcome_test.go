package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/codecritic/internal/model"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code      int
		want      Kind
		retriable bool
	}{
		{429, KindRateLimited, true},
		{503, KindServiceUnavailable, true},
		{400, KindBadRequest, false},
		{500, KindUnexpectedStatus, true},
		{401, KindUnexpectedStatus, true},
	}

	for _, tt := range tests {
		out := FromStatus(tt.code, "detail")
		if out.Kind != tt.want {
			t.Errorf("FromStatus(%d) = %s, want %s", tt.code, out.Kind, tt.want)
		}
		if out.Retriable() != tt.retriable {
			t.Errorf("FromStatus(%d).Retriable() = %v, want %v", tt.code, out.Retriable(), tt.retriable)
		}
		if out.StatusCode != tt.code {
			t.Errorf("FromStatus(%d) kept status %d", tt.code, out.StatusCode)
		}
	}
}

func TestFromTransportError(t *testing.T) {
	if out := FromTransportError(fmt.Errorf("execute: %w", context.DeadlineExceeded)); out.Kind != KindTimeout {
		t.Errorf("Expected timeout, got %s", out.Kind)
	}
	if out := FromTransportError(errors.New("connection reset")); out.Kind != KindNetworkError {
		t.Errorf("Expected network_error, got %s", out.Kind)
	}
}

func TestSuccess(t *testing.T) {
	out := Success("", model.Usage{}, "m")
	if !out.OK() {
		t.Error("Empty text is still a successful call")
	}
	if out.Retriable() {
		t.Error("Success must not be retriable")
	}
}

func TestTruncateDetail(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := truncateDetail([]byte(long))
	if len(got) != 512+len("...") {
		t.Errorf("Expected truncated detail, got %d chars", len(got))
	}
	if truncateDetail([]byte("short")) != "short" {
		t.Error("Short detail should be unchanged")
	}
}

func TestKindString(t *testing.T) {
	if KindRateLimited.String() != "rate_limited" {
		t.Errorf("Unexpected string %q", KindRateLimited.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("Unexpected string %q", Kind(99).String())
	}
}
