package hooks

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-docquery/cachemode"
	"github.com/goliatone/go-docquery/pkg/di"
)

// QueryOptions override the container's query defaults for one hook. Zero
// durations and nil pointers inherit the default.
type QueryOptions struct {
	StaleTime  time.Duration
	Enabled    *bool
	Retry      *int
	RetryDelay time.Duration
}

// Validate implements validation.Validatable.
func (o QueryOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.StaleTime, validation.Min(time.Duration(0)).Error("must be non-negative")),
		validation.Field(&o.Retry, validation.Min(0).Error("must be non-negative")),
		validation.Field(&o.RetryDelay, validation.Min(time.Duration(0)).Error("must be non-negative")),
	)
}

// Resolve overlays o on defaults.
func (o QueryOptions) Resolve(defaults di.QueryDefaults) di.QueryDefaults {
	out := defaults
	if o.StaleTime > 0 {
		out.StaleTime = o.StaleTime
	}
	if o.Enabled != nil {
		out.Enabled = *o.Enabled
	}
	if o.Retry != nil {
		out.Retry = *o.Retry
	}
	if o.RetryDelay > 0 {
		out.RetryDelay = o.RetryDelay
	}
	return out
}

// ReadOptions is the per-call surface of both read hooks.
type ReadOptions struct {
	// PreferCache selects the read path. Empty means cachemode.Default.
	PreferCache cachemode.Preference
	// WithMeta attaches page metadata to collection results.
	WithMeta bool
	// Debug logs timing and outcome of every fetch.
	Debug bool
	Query QueryOptions
}

func (o ReadOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.PreferCache, validation.By(validPreference)),
		validation.Field(&o.Query),
	)
}

func validPreference(value any) error {
	p, _ := value.(cachemode.Preference)
	if p == "" || p.Valid() {
		return nil
	}
	return fmt.Errorf("unknown cache preference %q", string(p))
}

// WriteOptions is the per-call surface of the write hooks.
type WriteOptions struct {
	// Invalidate controls cache invalidation after a create. Nil means true.
	// Updates and deletes always invalidate.
	Invalidate *bool
	// EnableLogging overrides the container's audit setting.
	EnableLogging *bool
	Debug         bool
	// BeforeSave transforms the fields before they are written.
	BeforeSave func(data map[string]any) (map[string]any, error)
}

func (o WriteOptions) invalidate() bool {
	return o.Invalidate == nil || *o.Invalidate
}

func (o WriteOptions) logging(c *di.Container) bool {
	if o.EnableLogging != nil {
		return *o.EnableLogging
	}
	return c.Audit().Enabled
}

// Bool returns a pointer to b for option fields.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n for option fields.
func Int(n int) *int { return &n }
