package postgres

import (
	"testing"

	"fileflow/internal/storage"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  storage.Config
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  storage.Config{DSN: "postgres://u@h/db", Host: "ignored"},
			want: "postgres://u@h/db",
		},
		{
			name: "defaults",
			cfg:  storage.Config{Database: "imports"},
			want: "postgres://localhost:5432/imports",
		},
		{
			name: "credentials are escaped",
			cfg:  storage.Config{Host: "db", Port: 6543, User: "load", Password: "p@ss/w", Database: "x"},
			want: "postgres://load:p%40ss%2Fw@db:6543/x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Fatalf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
