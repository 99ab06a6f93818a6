package mappers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClampReason(t *testing.T) {
	assert.Equal(t, "cc_rejected", clampReason("cc_rejected"))

	long := strings.Repeat("é", 800)
	got := clampReason(long)
	assert.Equal(t, reasonColumnSize, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Nil(t, clampReasonPtr(nil))
	s := "timeout"
	assert.Equal(t, "timeout", *clampReasonPtr(&s))
}
