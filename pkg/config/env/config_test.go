package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/code-idl/pkg/config"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("IDL_FETCHER_COMMITMENT", " finalized ")
	t.Setenv("IDL_FETCHER_BLANK", "   ")

	v, err := NewConfig("idl_fetcher_commitment").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("finalized"), v)

	for _, key := range []string{"IDL_FETCHER_BLANK", "IDL_FETCHER_UNSET"} {
		v, err = NewConfig(key).Get(context.Background())
		assert.Nil(t, v)
		assert.Equal(t, config.ErrNoValue, err)
	}
}

func TestSource(t *testing.T) {
	t.Setenv("IDL_FETCHER_FETCH_TIMEOUT", "3s")
	t.Setenv("IDL_FETCHER_CACHE_BUDGET_BYTES", "1024")
	t.Setenv("IDL_FETCHER_REQUESTS_PER_SECOND", "not-a-number")

	ctx := context.Background()
	source := NewSource("idl_fetcher_")
	assert.Equal(t, "IDL_FETCHER_VERBOSE_CACHE", source.Key("verbose_cache"))

	assert.Equal(t, 3*time.Second, source.Duration("fetch_timeout", time.Second).Get(ctx))
	assert.EqualValues(t, 1024, source.Uint64("CACHE_BUDGET_BYTES", 1).Get(ctx))
	assert.Equal(t, "confirmed", source.String("commitment", "confirmed").Get(ctx))
	assert.True(t, source.Bool("verbose_cache", true).Get(ctx))

	// Unparseable values fall back to the default.
	rps := source.Float64("requests_per_second", 50)
	assert.Equal(t, 50.0, rps.Get(ctx))
	_, err := rps.GetSafe(ctx)
	assert.Error(t, err)
}
