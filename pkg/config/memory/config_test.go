package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/config"
	"github.com/code-payments/code-idl/pkg/config/wrapper"
)

func TestConfig_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewConfig("confirmed")

	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", v)

	c.SetValue("finalized")
	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "finalized", v)

	c.InduceErrors()
	_, err = c.Get(ctx)
	assert.Equal(t, errDeveloperInduced, err)

	// Induced errors win over the value until stopped.
	c.ClearValue()
	c.StopInducingErrors()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.Shutdown()
	c.SetValue("processed")
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestConfig_TypedOverride(t *testing.T) {
	ctx := context.Background()
	override := NewConfig(nil)
	timeout := wrapper.NewDurationConfig(override, 10*time.Second)

	assert.Equal(t, 10*time.Second, timeout.Get(ctx))

	override.SetValue(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, timeout.Get(ctx))

	// A failing source keeps serving the last good value.
	override.InduceErrors()
	v, err := timeout.GetSafe(ctx)
	assert.Error(t, err)
	assert.Equal(t, 250*time.Millisecond, v)
}

func TestConfig_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewConfig(uint64(0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetValue(uint64(i*100 + j))
				_, err := c.Get(ctx)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
}
