package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatDuration(0))
	assert.Equal(t, "0:00:59", FormatDuration(59))
	assert.Equal(t, "0:01:40", FormatDuration(100))
	assert.Equal(t, "1:00:00", FormatDuration(3600))
	assert.Equal(t, "27:46:40", FormatDuration(100000))
}
