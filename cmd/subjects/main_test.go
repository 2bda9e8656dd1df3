package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("SUBJECTS_STORE_PATH", "env.txt")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := loadConfig(flags{storePath: "flag.txt", exportPath: "out.csv"})
	require.NoError(t, err)
	assert.Equal(t, "flag.txt", cfg.Store.Path)
	assert.Equal(t, "out.csv", cfg.Export.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)

	_, err = loadConfig(flags{logLevel: "loud"})
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "subjects version 0.1.0 (build: dev)\n", out.String())
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "db.txt")
	require.NoError(t, os.WriteFile(store, []byte(
		"Иван;Сидоров;;4510123456;1985-03-14\n"+
			"Анна;Петрова;;0101123456;1990-12-01\n"), 0o644))
	target := filepath.Join(dir, "out.csv")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"export", "--store", store, target})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "exported 2 subjects to "+target))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t,
		"Петрова;Анна;;01/12/1990;0101;0101-0101123456\n"+
			"Сидоров;Иван;;14/03/1985;4510;4510-4510123456\n",
		string(raw))
}

func TestConsoleCommand(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "db.txt")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("new\nИван\nПетров\n\n4510123456\n14.03.1985\nexit\n"))
	cmd.SetArgs([]string{"console", "--store", store})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Added: Петров Иван")

	raw, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.Equal(t, "Иван;Петров;;4510123456;1985-03-14\n", string(raw))
}

func TestConsoleCommand_StoreOpenFailure(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"console", "--store", filepath.Join(t.TempDir(), "missing", "db.txt")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store")
}
