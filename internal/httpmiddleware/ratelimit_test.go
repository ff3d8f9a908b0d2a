package httpmiddleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketExhausts(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"))
	}
	assert.False(t, l.allow("10.0.0.1"))
}

func TestBucketsAreKeyedPerClient(t *testing.T) {
	l := NewSimpleTokenBucket(1, 1)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}
