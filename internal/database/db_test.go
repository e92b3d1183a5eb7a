package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds timezone",
			in:   "postgres://u:p@localhost:5432/meetup?sslmode=disable",
			want: "postgres://u:p@localhost:5432/meetup?TimeZone=UTC&sslmode=disable",
		},
		{
			name: "keeps explicit timezone",
			in:   "postgres://localhost/meetup?TimeZone=Europe%2FBerlin",
			want: "postgres://localhost/meetup?TimeZone=Europe%2FBerlin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utcDSN(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitRequiresURL(t *testing.T) {
	_, err := Init("")
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, Close(nil))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	// one up and one down file per version
	assert.Len(t, entries, 12)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000004_add_event_capacity_and_staff.up.sql")
	assert.Contains(t, names, "000005_create_categories.up.sql")
	assert.Contains(t, names, "000006_create_event_comments.up.sql")
}
