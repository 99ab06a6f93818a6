package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleOperator, ParseRole("operator"))
	assert.Equal(t, RoleOperator, ParseRole("root"))
}

func TestCanAccessTenant(t *testing.T) {
	assert.True(t, CanAccessTenant(RoleAdmin, "", "t1"))
	assert.True(t, CanAccessTenant(RoleOperator, "t1", "t1"))
	assert.False(t, CanAccessTenant(RoleOperator, "t1", "t2"))
	assert.False(t, CanAccessTenant(RoleOperator, "", ""))
}
