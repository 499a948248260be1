package installer

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/target"
)

// SeedUnit names the default content unit.
const SeedUnit = "seed"

//go:embed seed/default.sql
var defaultSeed []byte

// seedTables are the tables the default content writes to.
var seedTables = []string{"user_group", "page", "box"}

// seedColumns are the user group columns the seed relies on.
var seedColumns = []string{"id", "title", "descr", "level", "blocked", "reglist"}

// SeedInstaller loads the default content into a migrated schema. It is installed once
// every seeded table exists and has at least one row and the user group table has the
// expected columns.
type SeedInstaller struct {
	*Installer
	db     *target.DB
	dump   []byte
	logger zerolog.Logger
}

// NewSeedInstaller creates the default content installer for db.
func NewSeedInstaller(db *target.DB, logger zerolog.Logger, opts ...Option) *SeedInstaller {
	si := &SeedInstaller{
		db:     db,
		dump:   defaultSeed,
		logger: logger.With().Str("component", "installer").Str("unit", SeedUnit).Logger(),
	}

	opts = append([]Option{WithLogger(logger.With().Str("component", "installer").Logger())}, opts...)
	si.Installer = New(SeedUnit, GateFunc(si.seeded), si.load, opts...)

	return si
}

func (si *SeedInstaller) seeded(ctx context.Context) (bool, error) {
	schema := NewSchema(si.db)

	missing, err := schema.MissingTables(ctx, seedTables)
	if err != nil || len(missing) > 0 {
		return false, err
	}

	missing, err = schema.MissingColumns(ctx, "user_group", seedColumns)
	if err != nil || len(missing) > 0 {
		return false, err
	}

	for _, base := range seedTables {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", si.db.QuoteIdent(si.db.Table(base)))
		count, _, err := si.db.ReadValue(ctx, query)
		if err != nil {
			return false, err
		}
		if count == "" || count == "0" {
			si.logger.Debug().Str("table", si.db.Table(base)).Msg("Seeded table is empty")
			return false, nil
		}
	}
	return true, nil
}

// load runs the dump in one transaction, so a failed load leaves the seeded tables as
// they were and the next attempt starts over.
func (si *SeedInstaller) load(ctx context.Context) error {
	n, err := NewSchema(si.db).LoadDump(ctx, bytes.NewReader(si.dump), target.PrefixToken)
	if err != nil {
		return err
	}
	si.logger.Info().Int("statements", n).Msg("Default content loaded")
	return nil
}
