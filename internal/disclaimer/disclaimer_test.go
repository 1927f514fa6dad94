package disclaimer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextsAreNonEmpty(t *testing.T) {
	assert.NotEmpty(t, Medical)
	assert.NotEmpty(t, Short)
	assert.Contains(t, strings.ToLower(Emergency), "emergency")
	assert.Contains(t, Emergency, "911")
}

func TestForUrgency(t *testing.T) {
	for _, level := range []string{"low", "moderate", "high"} {
		assert.NotEmpty(t, ForUrgency(level), level)
	}
	assert.Contains(t, ForUrgency("high"), "HIGH")
	assert.Empty(t, ForUrgency("critical"))
}
