package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/swellmap/internal/database"
)

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, database.Config{}.Enabled())
	assert.True(t, database.Config{Host: "localhost"}.Enabled())
	assert.True(t, database.Config{URL: "postgres://x"}.Enabled())
}

func TestConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{
			name: "url wins",
			cfg:  database.Config{URL: "postgres://u@h/db", Host: "other"},
			want: "postgres://u@h/db",
		},
		{
			name: "discrete fields",
			cfg: database.Config{
				Host: "db", Port: 5432, User: "swell", Password: "p@ss",
				Database: "swellmap", SSLMode: "disable",
			},
			want: "postgres://swell:p%40ss@db:5432/swellmap?sslmode=disable",
		},
		{
			name: "no password",
			cfg:  database.Config{Host: "db", Port: 5433, User: "swell", Database: "swellmap"},
			want: "postgres://swell@db:5433/swellmap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnectionString())
		})
	}
}

func TestConnect_InvalidConnectionString(t *testing.T) {
	_, err := database.Connect(context.Background(), database.Config{URL: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse connection string")
}
