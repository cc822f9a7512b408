package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, "localhost", d.Host)
	assert.Equal(t, "monfs", d.DB)
	assert.Equal(t, "objects", d.Collection)
	assert.Equal(t, "./", d.Dir)
	assert.NoError(t, d.Validate())
	assert.Equal(t, "monfs.db", d.SQLitePath())
}

func TestLoadFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"hcl", "monfs.hcl", "backend = \"sqlite\"\ndb = \"nagios\"\nlog_development = true\n"},
		{"yaml", "monfs.yaml", "backend: sqlite\ndb: nagios\nlog_development: true\n"},
		{"jsonc", "monfs.jsonc", "{\n  // local store\n  \"backend\": \"sqlite\",\n  \"db\": \"nagios\",\n  \"log_development\": true,\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, LoadFile(writeFile(t, tt.file, tt.content), &cfg))
			assert.Equal(t, BackendSQLite, cfg.Backend)
			assert.Equal(t, "nagios", cfg.DB)
			assert.True(t, cfg.LogDevelopment)
			// untouched keys keep their defaults
			assert.Equal(t, "objects", cfg.Collection)
			assert.Equal(t, "localhost", cfg.Host)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Error(t, LoadFile(writeFile(t, "monfs.toml", "x = 1"), &cfg))
	assert.Error(t, LoadFile(writeFile(t, "bad.yaml", "backend: [unclosed"), &cfg))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "monfs.yaml", "backend: sqlite\ndb: fromfile\ncollection: fromfile\n")
	t.Setenv("MONFS_COLLECTION", "fromenv")
	t.Setenv("MONFS_DB", "fromenv")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--db", "fromflag"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "fromenv", cfg.Collection)
	assert.Equal(t, "fromflag", cfg.DB)
	// unchanged flags do not reset earlier layers
	assert.Equal(t, "localhost", cfg.Host)
}

func TestLoad_EnvHTTPAddr(t *testing.T) {
	t.Setenv("MONFS_HTTP_ADDR", ":9999")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Backend = "redis"
	assert.Error(t, c.Validate())

	c = Default()
	c.Collection = ""
	assert.Error(t, c.Validate())

	c = Default()
	c.Backend = BackendSQLite
	c.Collection = "objects; DROP TABLE x"
	assert.Error(t, c.Validate())

	c = Default()
	c.Backend = BackendMemory
	c.Host = ""
	assert.NoError(t, c.Validate())
}

func TestSplitMountOptions(t *testing.T) {
	args := []string{"monfs", "/mnt/monfs", "-o", "allow_other,host=sandbox,db=nagios,collection=objs", "-f", "-o", "host=x"}
	out, extra := SplitMountOptions(args)

	assert.Equal(t, []string{"monfs", "/mnt/monfs", "-o", "allow_other", "-f"}, out)
	assert.Equal(t, map[string]string{"host": "x", "db": "nagios", "collection": "objs"}, extra)

	cfg := Default()
	cfg.ApplyMountOptions(extra)
	assert.Equal(t, "x", cfg.Host)
	assert.Equal(t, "nagios", cfg.DB)
	assert.Equal(t, "objs", cfg.Collection)
}
