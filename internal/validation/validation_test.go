package validation

import (
	"strings"
	"testing"

	"postgate/internal/models"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email string  `json:"email" validate:"required,email,max=60"`
	Title *string `json:"title" validate:"omitempty,min=1,max=5"`
	Role  string  `json:"role" validate:"omitempty,oneof=admin user"`
}

func TestStruct(t *testing.T) {
	long := "toolong"
	ok := "ok"

	tests := []struct {
		name     string
		input    sample
		contains []string
	}{
		{"valid", sample{Email: "a@x.io", Title: &ok, Role: "user"}, nil},
		{"missing email", sample{}, []string{"email is required"}},
		{"bad email", sample{Email: "nope"}, []string{"email must be a valid email address"}},
		{"long title", sample{Email: "a@x.io", Title: &long}, []string{"title must be at most 5 characters"}},
		{"bad role", sample{Email: "a@x.io", Role: "root"}, []string{"role must be one of: admin user"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.contains == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.IsCode(err, models.CodeValidation))
			for _, c := range tt.contains {
				assert.Contains(t, err.Error(), c)
			}
		})
	}
}

func TestPostChangesTags(t *testing.T) {
	title := ""
	assert.Error(t, Struct(models.PostChanges{Title: &title}))

	long := strings.Repeat("x", 71)
	assert.Error(t, Struct(models.PostChanges{Title: &long}))

	tier := uint(0)
	assert.Error(t, Struct(models.PostChanges{RequiredAccessID: &tier}))
	assert.NoError(t, Struct(models.PostChanges{}))
}

func TestPasswordByteLimit(t *testing.T) {
	fits := strings.Repeat("é", MaxPasswordBytes/2)
	assert.NoError(t, Struct(models.UserChanges{Password: &fits}))

	over := fits + "x"
	err := Struct(models.UserChanges{Password: &over})
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Contains(t, err.Error(), "password must be at most 72 bytes")
}

func TestPresent(t *testing.T) {
	assert.NoError(t, Present(Field{"title", true}))
	err := Present(Field{"title", false}, Field{"description", true}, Field{"required_access_id", false})
	assert.EqualError(t, err, "Missing required fields: title, required_access_id")
}

func TestBlank(t *testing.T) {
	assert.True(t, Blank("   \t"))
	assert.True(t, Blank(""))
	assert.False(t, Blank(" x "))
}
