package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify_ContextErrorsPassThrough(t *testing.T) {
	if got := classify(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("classify(context.Canceled) = %v", got)
	}
	if got := classify(context.DeadlineExceeded); !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("classify(context.DeadlineExceeded) = %v", got)
	}
}

func TestClassify_NetworkErrorIsTransient(t *testing.T) {
	err := classify(fmt.Errorf("dial tcp: connection refused"))

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("classify() = %T, want *ProviderError", err)
	}
	if !perr.Transient {
		t.Error("network error classified as fatal")
	}
	if IsFatal(err) {
		t.Error("IsFatal() = true for transient error")
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "fatal with status",
			err:  &ProviderError{StatusCode: 401, Err: errors.New("bad key")},
			want: "provider error (fatal, status 401): bad key",
		},
		{
			name: "transient without status",
			err:  &ProviderError{Transient: true, Err: errors.New("timeout")},
			want: "provider error (transient): timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	fatal := &ProviderError{StatusCode: 401, Err: errors.New("auth")}
	transient := &ProviderError{StatusCode: 429, Transient: true, Err: errors.New("rate limit")}

	if !IsFatal(fatal) {
		t.Error("IsFatal(auth error) = false")
	}
	if IsFatal(transient) {
		t.Error("IsFatal(rate limit) = true")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("IsFatal(plain error) = true")
	}
	if IsFatal(fmt.Errorf("wrapped: %w", fatal)) != true {
		t.Error("IsFatal does not unwrap")
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 20)
	tr.Add(50, 10)

	in, out, calls := tr.Totals()
	if in != 150 || out != 30 || calls != 2 {
		t.Errorf("Totals() = (%d, %d, %d), want (150, 30, 2)", in, out, calls)
	}
}
