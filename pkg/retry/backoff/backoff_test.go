package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	s := Exponential(2*time.Second, 3)

	for i, expected := range []time.Duration{2 * time.Second, 6 * time.Second, 18 * time.Second, 54 * time.Second} {
		assert.Equal(t, expected, s(uint(i+1)))
	}
}

func TestBinaryExponential(t *testing.T) {
	s := BinaryExponential(time.Second)

	assert.Equal(t, time.Second, s(1))
	assert.Equal(t, 8*time.Second, s(4))
	assert.Equal(t, time.Duration(math.MaxInt64), s(200))
}
