package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSessionUser(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want SessionUser
	}{
		{
			name: "flat profile",
			raw:  `{"id":"u1","name":"Dr. House","email":"h@ppth.org","roles":["doctor","admin"]}`,
			want: SessionUser{ID: "u1", Name: "Dr. House", Email: "h@ppth.org", Roles: []string{"doctor", "admin"}},
		},
		{
			name: "numeric id and split name",
			raw:  `{"id":42,"first_name":"Lisa","last_name":"Cuddy","role":"director"}`,
			want: SessionUser{ID: "42", Name: "Lisa Cuddy", Roles: []string{"director"}},
		},
		{
			name: "mongo id and role objects",
			raw:  `{"_id":"abc","name":"Nurse","roles":[{"name":"nurse"},{"id":3}]}`,
			want: SessionUser{ID: "abc", Name: "Nurse", Roles: []string{"nurse"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSessionUser([]byte(tt.raw))
			require.NoError(t, err)
			require.JSONEq(t, tt.raw, string(got.Raw))
			got.Raw = nil
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestDecodeSessionUser_Invalid(t *testing.T) {
	_, err := DecodeSessionUser([]byte(`[1,2]`))
	require.Error(t, err)
}
