package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/migrator/pkg/fault"
)

// Store reads and writes the configuration file at a fixed path.
type Store struct {
	path      string
	validator *Validator
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		path:      path,
		validator: NewValidator(),
	}
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the configuration file exists.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads the configuration file. The boolean is false when the file does not exist.
func (s *Store) Load() (*File, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fault.IO(fault.CodeReadFailed, fmt.Sprintf("failed to read %s", s.path), err).WithArgs(s.path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, true, fault.Validation("config.invalid", fmt.Sprintf("failed to parse %s: %v", s.path, err)).WithArgs(err.Error())
	}

	if err := s.validator.File(&f); err != nil {
		return nil, true, err
	}

	return &f, true, nil
}

// LoadDefault reads the configuration file and returns its default environment.
func (s *Store) LoadDefault() (Environment, bool, error) {
	f, found, err := s.Load()
	if err != nil || !found {
		return Environment{}, found, err
	}
	env, err := f.Default()
	return env, true, err
}

// Write validates and writes the configuration file, replacing any existing one.
func (s *Store) Write(f *File) error {
	if err := s.validator.File(f); err != nil {
		return err
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fault.Internal("config.encode", "failed to encode configuration", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".migrator-*.yaml")
	if err != nil {
		return s.writeFailed(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return s.writeFailed(err)
	}
	if err := tmp.Close(); err != nil {
		return s.writeFailed(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return s.writeFailed(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return s.writeFailed(err)
	}

	return nil
}

func (s *Store) writeFailed(err error) error {
	return fault.IO(fault.CodeWriteFailed, fmt.Sprintf("failed to write %s", s.path), err).WithArgs(s.path)
}
