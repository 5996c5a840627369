package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gymmanager/workout-app/internal/config"
)

func TestHashPasswordCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"hash-password", "s3cret"})
	require.NoError(t, root.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordFromStdin(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("from-stdin\n"))
	root.SetArgs([]string{"hash-password"})
	require.NoError(t, root.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from-stdin")))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	root := newRootCmd()
	root.SetIn(strings.NewReader("\n"))
	root.SetArgs([]string{"hash-password"})
	assert.Error(t, root.Execute())
}

func TestMigrateCommandCreatesSQLiteFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "test.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", dir})
	require.NoError(t, root.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestUnknownDrivers(t *testing.T) {
	_, err := openStore(context.Background(), config.DatabaseConfig{Driver: "cassandra"}, zerolog.Nop())
	assert.Error(t, err)

	_, _, err = openSlot(context.Background(), config.QueueConfig{Slot: "memcached"})
	assert.Error(t, err)

	_, err = openFileStorage(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "ftp"}}, zerolog.Nop())
	assert.Error(t, err)
}
