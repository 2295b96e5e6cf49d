package webmetrics

import (
	"context"
	"net/url"
	"testing"

	"github.com/pkg/errors"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status       int
		routeMatched bool
		want         Outcome
	}{
		{200, true, OutcomeSuccess},
		{204, true, OutcomeSuccess},
		{302, true, OutcomeSuccess},
		{400, true, OutcomeClientError},
		{404, true, OutcomeClientError},
		{500, true, OutcomeServerError},
		{503, true, OutcomeServerError},
		{404, false, OutcomeNoRouteMatch},
		{406, false, OutcomeNoRouteMatch},
	}

	for _, c := range cases {
		if got := classifyStatus(c.status, c.routeMatched); got != c.want {
			t.Errorf("classifyStatus(%d, %v) = %v, want %v", c.status, c.routeMatched, got, c.want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	if got := classifyError(errors.New("dial tcp: connection refused")); got != OutcomeError {
		t.Errorf("transport error classified as %v, want %v", got, OutcomeError)
	}

	wrapped := &url.Error{Op: "Get", URL: "http://example.org", Err: context.Canceled}
	if got := classifyError(wrapped); got != OutcomeCanceled {
		t.Errorf("wrapped cancellation classified as %v, want %v", got, OutcomeCanceled)
	}

	if got := classifyError(context.DeadlineExceeded); got != OutcomeCanceled {
		t.Errorf("deadline classified as %v, want %v", got, OutcomeCanceled)
	}
}
