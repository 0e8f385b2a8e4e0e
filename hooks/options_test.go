package hooks_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-docquery/hooks"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/stretchr/testify/assert"
)

func TestQueryOptions_Resolve(t *testing.T) {
	defaults := di.QueryDefaults{StaleTime: time.Minute, Enabled: true, Retry: 1, RetryDelay: 200 * time.Millisecond}

	tests := []struct {
		name string
		opts hooks.QueryOptions
		want di.QueryDefaults
	}{
		{name: "inherits everything", want: defaults},
		{
			name: "overrides set fields",
			opts: hooks.QueryOptions{StaleTime: time.Second, Retry: hooks.Int(0), Enabled: hooks.Bool(false)},
			want: di.QueryDefaults{StaleTime: time.Second, Enabled: false, Retry: 0, RetryDelay: 200 * time.Millisecond},
		},
		{
			name: "retry delay only",
			opts: hooks.QueryOptions{RetryDelay: time.Second},
			want: di.QueryDefaults{StaleTime: time.Minute, Enabled: true, Retry: 1, RetryDelay: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Resolve(defaults))
		})
	}
}

func TestQueryOptions_Validate(t *testing.T) {
	assert.NoError(t, hooks.QueryOptions{}.Validate())
	assert.Error(t, hooks.QueryOptions{StaleTime: -time.Second}.Validate())
	assert.Error(t, hooks.QueryOptions{RetryDelay: -time.Second}.Validate())
	assert.Error(t, hooks.QueryOptions{Retry: hooks.Int(-2)}.Validate())
}

func TestOperationError(t *testing.T) {
	cause := errors.New("offline")
	err := &hooks.OperationError{Op: hooks.OpDelete, Collection: "todos", Err: cause}

	assert.Equal(t, "delete:todos", err.Context())
	assert.Equal(t, "delete:todos: offline", err.Error())
	assert.ErrorIs(t, err, cause)
}
