package blob

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "server_error_retried",
			err:  &googleapi.Error{Code: http.StatusServiceUnavailable},
			want: true,
		},
		{
			name: "internal_error_retried",
			err:  &googleapi.Error{Code: http.StatusInternalServerError},
			want: true,
		},
		{
			name: "rate_limit_retried",
			err:  &googleapi.Error{Code: http.StatusTooManyRequests},
			want: true,
		},
		{
			name: "forbidden_permanent",
			err:  &googleapi.Error{Code: http.StatusForbidden},
			want: false,
		},
		{
			name: "bad_request_permanent",
			err:  &googleapi.Error{Code: http.StatusBadRequest},
			want: false,
		},
		{
			name: "wrapped_permanent_still_detected",
			err:  fmt.Errorf("failed to read object: %w", &googleapi.Error{Code: http.StatusNotFound}),
			want: false,
		},
		{
			name: "network_error_retried",
			err:  errors.New("connection reset by peer"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
