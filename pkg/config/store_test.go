package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/migrator/pkg/fault"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "migrator.yaml"))

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, store.Exists())

	env := Environment{
		Adapter:     "mysql",
		Host:        "db.local",
		Port:        3307,
		User:        "root",
		Pass:        "secret",
		Name:        "cms",
		TablePrefix: "sunlight",
	}
	require.NoError(t, store.Write(NewFile(env)))
	assert.True(t, store.Exists())

	loaded, found, err := store.LoadDefault()
	require.NoError(t, err)
	require.True(t, found)

	env.Charset = "utf8mb4"
	env.Collation = "utf8mb4_unicode_ci"
	assert.Equal(t, env, loaded)

	params := loaded.Params()
	assert.Equal(t, "db.local", params.Host)
	assert.Equal(t, "secret", params.Password)
	assert.Equal(t, "sunlight_", params.TablePrefix())
	assert.Equal(t, FromParams(params).Name, "cms")
}

func TestStoreLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrator.yaml")
	store := NewStore(path)

	require.NoError(t, store.Write(NewFile(Environment{Adapter: "sqlite", Name: "cms.db", TablePrefix: "cms"})))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_environment: production")
	assert.Contains(t, string(data), "table_prefix: cms")
	assert.NotContains(t, string(data), "charset")
}

func TestStoreLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "environments: [unterminated"},
		{name: "missing default", content: "default_environment: staging\nenvironments:\n  production:\n    adapter: sqlite\n    name: a.db\n    table_prefix: cms\n"},
		{name: "bad prefix", content: "default_environment: production\nenvironments:\n  production:\n    adapter: sqlite\n    name: a.db\n    table_prefix: cms-site\n"},
		{name: "bad adapter", content: "default_environment: production\nenvironments:\n  production:\n    adapter: oracle\n    name: a\n    table_prefix: cms\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "migrator.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, found, err := NewStore(path).Load()
			assert.True(t, found)
			require.Error(t, err)
			assert.True(t, fault.IsValidation(err))
		})
	}
}

func TestStoreWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "migrator.yaml")

	err := NewStore(path).Write(NewFile(Environment{Adapter: "sqlite", Name: "cms.db", TablePrefix: "cms"}))
	require.Error(t, err)
	assert.True(t, fault.IsIO(err))

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fault.CodeWriteFailed, fe.Code)
	assert.Equal(t, []interface{}{path}, fe.Args)
}

func TestValidateSubmission(t *testing.T) {
	v := NewValidator()

	valid := Submission{Driver: "mysql", Server: "localhost", Name: "cms", Prefix: "sunlight"}
	assert.Empty(t, v.Submission(valid))

	tests := []struct {
		name  string
		edit  func(s *Submission)
		codes []string
	}{
		{name: "empty name", edit: func(s *Submission) { s.Name = "" }, codes: []string{"db.name.empty"}},
		{name: "empty prefix", edit: func(s *Submission) { s.Prefix = "" }, codes: []string{"db.prefix.empty"}},
		{name: "invalid prefix", edit: func(s *Submission) { s.Prefix = "cms-site" }, codes: []string{"db.prefix.invalid"}},
		{name: "negative port", edit: func(s *Submission) { s.Port = -1 }, codes: []string{"db.port.invalid"}},
		{name: "unknown driver", edit: func(s *Submission) { s.Driver = "oracle" }, codes: []string{"db.driver.invalid"}},
		{
			name:  "several fields",
			edit:  func(s *Submission) { s.Name, s.Prefix = "", "" },
			codes: []string{"db.name.empty", "db.prefix.empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.edit(&s)

			var codes []string
			for _, err := range v.Submission(s) {
				assert.True(t, fault.IsValidation(err))
				var fe *fault.Error
				require.ErrorAs(t, err, &fe)
				codes = append(codes, fe.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}
