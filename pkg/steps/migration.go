package steps

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/wizard"
)

// FieldConfirm is the checkbox confirming the migration.
const FieldConfirm = "confirm_migration"

// MigrationStep runs the one-time database migration.
type MigrationStep struct {
	session    *Session
	successful bool
	preflight  *policy.Result
}

// NewMigrationStep creates the migration step.
func NewMigrationStep(session *Session) *MigrationStep {
	return &MigrationStep{session: session}
}

func (s *MigrationStep) Key() string { return "migration" }

func (s *MigrationStep) VarNames() []string { return nil }

func (s *MigrationStep) Submittable() bool { return true }

// Submit runs the migration once it is confirmed, not yet done and allowed by the
// preflight policies.
func (s *MigrationStep) Submit(ctx context.Context, f *wizard.Frame) {
	db, err := s.session.DB(ctx)
	if err != nil {
		f.AddError(err)
		return
	}
	mi, err := s.session.MigrationInstaller(ctx)
	if err != nil {
		f.AddError(err)
		return
	}

	migrated, err := mi.VersionMatches(ctx)
	if err != nil {
		f.AddError(err)
		return
	}
	if migrated {
		f.AddError(fault.AlreadyCompleted(fault.CodeCompleted, "database is already migrated"))
	}
	if !f.HasField(FieldConfirm) {
		f.AddError(fault.ConfirmationRequired("confirmation.required", "migration was not confirmed"))
	}
	if f.HasErrors() {
		return
	}

	if engine := s.session.env.Policies; engine != nil {
		result, err := Preflight(ctx, engine, db, mi)
		if err != nil {
			f.AddError(fault.From(err, "failed").WithArgs(err.Error()))
			return
		}
		s.preflight = result
		if !result.Allowed {
			messages := strings.Join(result.Messages(), "; ")
			f.AddError(fault.PolicyDenied("policy.denied", messages).WithArgs(messages))
			return
		}
	}

	installed, err := mi.Install(ctx)
	if err != nil {
		f.AddError(fault.Internal("failed", "migration failed", err).WithArgs(err.Error()))
		return
	}
	s.successful = installed
}

// Satisfied reports whether the migration ran in this request and the target now shows
// the migrated schema.
func (s *MigrationStep) Satisfied(ctx context.Context, _ *wizard.Frame) bool {
	if !s.successful {
		return false
	}
	mi, err := s.session.MigrationInstaller(ctx)
	if err != nil {
		return false
	}
	installed, err := mi.IsInstalled(ctx)
	return err == nil && installed
}

// AfterComplete purges the cache directory. Running it again finds nothing to remove.
func (s *MigrationStep) AfterComplete(context.Context, *wizard.Frame) {
	PurgeCache(s.session.env.CacheDir, s.session.logger)
}

// PurgeCache removes every entry of dir and returns how many were found. A missing or
// empty dir is not an error; failures are logged.
func PurgeCache(dir string, logger zerolog.Logger) int {
	if dir == "" {
		return 0
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to read cache directory")
		}
		return 0
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn().Err(err).Str("entry", entry.Name()).Msg("Failed to purge cache entry")
		}
	}

	if len(entries) > 0 {
		logger.Info().Int("entries", len(entries)).Str("dir", dir).Msg("Cache purged")
	}
	return len(entries)
}

// ViewData tells the template whether the target is already migrated and lists the
// non-blocking policy findings.
func (s *MigrationStep) ViewData(ctx context.Context, _ *wizard.Frame) map[string]interface{} {
	data := map[string]interface{}{
		"Migrated": false,
		"Warnings": []string{},
	}

	db, err := s.session.DB(ctx)
	if err != nil {
		return data
	}
	mi, err := s.session.MigrationInstaller(ctx)
	if err != nil {
		return data
	}

	migrated, err := mi.VersionMatches(ctx)
	if err != nil {
		return data
	}
	data["Migrated"] = migrated
	if migrated {
		return data
	}

	result := s.preflight
	if result == nil && s.session.env.Policies != nil {
		result, err = Preflight(ctx, s.session.env.Policies, db, mi)
		if err != nil {
			s.session.logger.Warn().Err(err).Msg("Preflight failed")
			return data
		}
	}
	if result != nil {
		warnings := make([]string, len(result.Warnings))
		for i, w := range result.Warnings {
			warnings[i] = w.Message
		}
		data["Warnings"] = warnings
	}

	return data
}
