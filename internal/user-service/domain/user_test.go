package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		u       User
		wantErr bool
	}{
		{name: "valid", u: User{Name: "Ada", Email: "ada@example.com"}},
		{name: "missing name", u: User{Email: "ada@example.com"}, wantErr: true},
		{name: "missing email", u: User{Name: "Ada"}, wantErr: true},
		{name: "bad email", u: User{Name: "Ada", Email: "not-an-email"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUser_ValidateNormalizesEmail(t *testing.T) {
	u := User{Name: " Ada ", Email: " Ada@Example.COM "}

	require.NoError(t, u.Validate())
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.Name)
}
