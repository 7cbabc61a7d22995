package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom(t *testing.T) {
	for range 20 {
		assert.Contains(t, userAgents, Random())
	}
}
