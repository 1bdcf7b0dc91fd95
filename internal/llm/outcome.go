package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/ppiankov/codecritic/internal/model"
)

// Kind classifies the result of one model call
type Kind int

const (
	KindSuccess            Kind = iota // 200 with a parsed body
	KindRateLimited                    // 429
	KindServiceUnavailable             // 503
	KindBadRequest                     // 400, never retried against the same model
	KindTimeout                        // Client-side deadline
	KindNetworkError                   // Transport or decoding failure
	KindUnexpectedStatus               // Any other HTTP status
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindBadRequest:
		return "bad_request"
	case KindTimeout:
		return "timeout"
	case KindNetworkError:
		return "network_error"
	case KindUnexpectedStatus:
		return "unexpected_status"
	default:
		return "unknown"
	}
}

// Outcome is the normalized result of a single HTTP attempt.
// Only the fields relevant to Kind are set.
type Outcome struct {
	Kind Kind

	// Success
	Text  string
	Usage model.Usage
	Model string

	// BadRequest, NetworkError, UnexpectedStatus
	Detail     string
	StatusCode int
}

// Success builds a successful outcome; empty text is still a success
func Success(text string, usage model.Usage, modelName string) Outcome {
	return Outcome{Kind: KindSuccess, Text: text, Usage: usage, Model: modelName}
}

// OK reports whether the call succeeded
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Retriable reports whether the same model may be tried again
func (o Outcome) Retriable() bool {
	switch o.Kind {
	case KindSuccess, KindBadRequest:
		return false
	default:
		return true
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("success (%s, %d chars)", o.Model, len(o.Text))
	case KindUnexpectedStatus:
		return fmt.Sprintf("unexpected status %d: %s", o.StatusCode, o.Detail)
	case KindBadRequest, KindNetworkError:
		return fmt.Sprintf("%s: %s", o.Kind, o.Detail)
	default:
		return o.Kind.String()
	}
}

// FromStatus maps a non-200 HTTP status to an outcome
func FromStatus(code int, detail string) Outcome {
	switch code {
	case http.StatusTooManyRequests:
		return Outcome{Kind: KindRateLimited, StatusCode: code, Detail: detail}
	case http.StatusServiceUnavailable:
		return Outcome{Kind: KindServiceUnavailable, StatusCode: code, Detail: detail}
	case http.StatusBadRequest:
		return Outcome{Kind: KindBadRequest, StatusCode: code, Detail: detail}
	default:
		return Outcome{Kind: KindUnexpectedStatus, StatusCode: code, Detail: detail}
	}
}

// FromTransportError maps a failed round trip to Timeout or NetworkError
func FromTransportError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: KindTimeout, Detail: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Outcome{Kind: KindTimeout, Detail: err.Error()}
	}
	return Outcome{Kind: KindNetworkError, Detail: err.Error()}
}

// truncateDetail keeps provider error bodies readable in logs
func truncateDetail(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
