package migrations

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4/source"

	"github.com/openfroyo/migrator/pkg/target"
)

// prefixSource wraps a migration source and rewrites the prefix token in every file it reads.
type prefixSource struct {
	source.Driver
	from string
	to   string
}

func newPrefixSource(driver source.Driver, from, to string) *prefixSource {
	return &prefixSource{
		Driver: driver,
		from:   from,
		to:     to,
	}
}

// Open is not supported; the source is always constructed from an existing driver.
func (s *prefixSource) Open(url string) (source.Driver, error) {
	return nil, fmt.Errorf("prefix source cannot be opened by url: %s", url)
}

// ReadUp reads an up migration and rewrites its prefix.
func (s *prefixSource) ReadUp(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := s.Driver.ReadUp(version)
	if err != nil {
		return nil, "", err
	}
	return s.rewrite(r, identifier)
}

// ReadDown reads a down migration and rewrites its prefix.
func (s *prefixSource) ReadDown(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := s.Driver.ReadDown(version)
	if err != nil {
		return nil, "", err
	}
	return s.rewrite(r, identifier)
}

func (s *prefixSource) rewrite(r io.ReadCloser, identifier string) (io.ReadCloser, string, error) {
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read migration %s: %w", identifier, err)
	}

	rewritten := target.RewritePrefix(string(data), s.from, s.to)
	return io.NopCloser(bytes.NewReader([]byte(rewritten))), identifier, nil
}
