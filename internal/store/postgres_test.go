package store

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGValue(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	at := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"numeric", pgtype.Numeric{Int: big.NewInt(25), Exp: -1, Valid: true}, 2.5},
		{"null numeric", pgtype.Numeric{}, nil},
		{"timestamp", at, "2024-03-01T12:30:00.0000005Z"},
		{"uuid", [16]byte(id), "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"int passes through", int64(7), int64(7)},
		{"text passes through", "Bambi", "Bambi"},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pgValue(tt.in))
		})
	}
}

func TestOpenPostgres_BadURL(t *testing.T) {
	_, err := OpenPostgres(context.Background(), config.DatabaseConfig{
		URL:    "postgres://user@localhost:notaport/movies",
		Driver: DriverPostgres,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}
