package identity

import (
	"testing"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleStandardUser.Valid())
	assert.False(t, Role("editor").Valid())
	assert.False(t, Role("").Valid())

	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleStandardUser.IsAdmin())

	assert.Equal(t, "Admin", RoleAdmin.Label())
	assert.Equal(t, "Blog User", RoleStandardUser.Label())
	assert.Equal(t, "blog_user", RoleStandardUser.String())
}

func TestValidate(t *testing.T) {
	full := Identity{ID: "1", Email: "a@b.com", Name: "A", Role: RoleAdmin}
	require.NoError(t, full.Validate())

	noName := full
	noName.Name = ""
	require.NoError(t, noName.Validate(), "name may be empty")

	for name, id := range map[string]Identity{
		"missing id":    {Email: "a@b.com", Role: RoleAdmin},
		"missing email": {ID: "1", Role: RoleAdmin},
		"unknown role":  {ID: "1", Email: "a@b.com", Role: "root"},
	} {
		t.Run(name, func(t *testing.T) {
			err := id.Validate()
			require.ErrorIs(t, err, ErrIncomplete)
			assert.Contains(t, err.Error(), name)
		})
	}
	assert.Equal(t, "identity: incomplete identity", ErrIncomplete.Error(), "sentinel must not be mutated")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Identity
	}{
		{
			name: "string id",
			in:   `{"id":"7","email":"x@y.com","name":"X","role":"blog_user"}`,
			want: Identity{ID: "7", Email: "x@y.com", Name: "X", Role: RoleStandardUser},
		},
		{
			name: "numeric id",
			in:   `{"id":2,"email":"x@y.com","name":"X","role":"admin"}`,
			want: Identity{ID: "2", Email: "x@y.com", Name: "X", Role: RoleAdmin},
		},
		{
			name: "missing name",
			in:   `{"id":"3","email":"x@y.com","role":"blog_user"}`,
			want: Identity{ID: "3", Email: "x@y.com", Role: RoleStandardUser},
		},
		{
			name: "null name",
			in:   `{"id":3,"email":"x@y.com","name":null,"role":"blog_user"}`,
			want: Identity{ID: "3", Email: "x@y.com", Role: RoleStandardUser},
		},
		{
			name: "exponent id",
			in:   `{"id":1e3,"email":"x@y.com","name":"X","role":"admin"}`,
			want: Identity{ID: "1000", Email: "x@y.com", Name: "X", Role: RoleAdmin},
		},
		{
			name: "integral float id",
			in:   `{"id":2.0,"email":"x@y.com","name":"X","role":"admin"}`,
			want: Identity{ID: "2", Email: "x@y.com", Name: "X", Role: RoleAdmin},
		},
		{
			name: "id beyond int64",
			in:   `{"id":123456789012345678901234567890,"email":"x@y.com","name":"X","role":"admin"}`,
			want: Identity{ID: "123456789012345678901234567890", Email: "x@y.com", Name: "X", Role: RoleAdmin},
		},
		{
			name: "negative id",
			in:   `{"id":-4,"email":"x@y.com","name":"X","role":"admin"}`,
			want: Identity{ID: "-4", Email: "x@y.com", Name: "X", Role: RoleAdmin},
		},
		{
			name: "empty name and extra keys",
			in:   `{"id":"1","email":"x@y.com","name":"","role":"admin","avatar":"a.png"}`,
			want: Identity{ID: "1", Email: "x@y.com", Role: RoleAdmin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := map[string]string{
		"not json":        `{not json`,
		"array":           `[1,2]`,
		"null":            `null`,
		"string":          `"user"`,
		"missing id":      `{"email":"x@y.com","name":"X","role":"admin"}`,
		"null id":         `{"id":null,"email":"x@y.com","name":"X","role":"admin"}`,
		"fractional id":   `{"id":2.5,"email":"x@y.com","name":"X","role":"admin"}`,
		"bool id":         `{"id":true,"email":"x@y.com","name":"X","role":"admin"}`,
		"numeric name":    `{"id":"1","email":"x@y.com","name":5,"role":"admin"}`,
		"fractional exp":  `{"id":25e-1,"email":"x@y.com","name":"X","role":"admin"}`,
		"huge exponent":   `{"id":1e999999,"email":"x@y.com","name":"X","role":"admin"}`,
		"numeric email":   `{"id":"1","email":5,"name":"X","role":"admin"}`,
		"empty email":     `{"id":"1","email":"","name":"X","role":"admin"}`,
		"unknown role":    `{"id":"1","email":"x@y.com","name":"X","role":"root"}`,
		"missing role":    `{"id":"1","email":"x@y.com","name":"X"}`,
		"truncated write": `{"id":"1","email":"x@y.com","na`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := Decode([]byte(in))
			require.ErrorIs(t, err, ErrMalformed)
			assert.Equal(t, codes.InvalidArgument, errors.Code(err))
			assert.True(t, got.IsZero(), "partially decoded data must not leak")
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	id := Identity{ID: "2", Email: "x@y.com", Name: "X", Role: RoleAdmin}
	b, err := id.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"2","email":"x@y.com","name":"X","role":"admin"}`, string(b))

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIsZero(t *testing.T) {
	assert.True(t, Identity{}.IsZero())
	assert.False(t, Identity{ID: "1"}.IsZero())
}
