package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/storage"
)

func TestConfig_FromParts(t *testing.T) {
	mcfg, err := Config(storage.Config{User: "root", Password: "secret", Database: "shop", Port: 3307})
	require.NoError(t, err)

	assert.Equal(t, "tcp", mcfg.Net)
	assert.Equal(t, "localhost:3307", mcfg.Addr)
	assert.Equal(t, "root", mcfg.User)
	assert.Equal(t, "secret", mcfg.Passwd)
	assert.Equal(t, "shop", mcfg.DBName)
	assert.Equal(t, "root:secret@tcp(localhost:3307)/shop", mcfg.FormatDSN())
}

func TestConfig_FromDSN(t *testing.T) {
	mcfg, err := Config(storage.Config{DSN: "u:p@tcp(db:3306)/sales", Host: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "db:3306", mcfg.Addr)
	assert.Equal(t, "sales", mcfg.DBName)
}

func TestConfig_BadDSN(t *testing.T) {
	_, err := Config(storage.Config{DSN: "not a dsn"})
	require.Error(t, err)
}

func TestNew_RejectsForeignKind(t *testing.T) {
	_, err := New(context.Background(), storage.Config{Kind: "postgres", DSN: "u:p@tcp(db:3306)/x"})
	require.Error(t, err)
}
