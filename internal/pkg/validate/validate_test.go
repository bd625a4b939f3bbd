package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `validate:"required"`
	Email string `validate:"omitempty,email"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "Ada"}))
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(sample{Email: "nope"})
	assert.ErrorContains(t, err, "field 'Name' failed 'required'")
	assert.ErrorContains(t, err, "field 'Email' failed 'email'")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("abc", "required,max=3"))
	assert.Error(t, Var("abcd", "max=3"))
}
