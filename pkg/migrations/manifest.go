// Package migrations applies the bundled schema migrations to a target database using
// golang-migrate. Migration files reference tables with the PrefixToken prefix, which is
// rewritten to the configured prefix while the files are read.
package migrations

const (
	// TargetVersion is the schema version recorded once every migration has been applied.
	TargetVersion = "8.0.0"

	// VersionTable is the base name of the table holding the version marker.
	VersionTable = "setting"

	// VersionKey is the setting holding the schema version.
	VersionKey = "dbversion"

	// BookkeepingTable is the base name of the table golang-migrate records applied
	// versions in. It carries the install prefix and is dropped after a successful run.
	BookkeepingTable = "migrator_log"
)

// BaseTables lists the base names of all tables the migrated schema must contain.
var BaseTables = []string{
	"article",
	"box",
	"user_group",
	"gallery_image",
	"iplog",
	"log",
	"pm",
	"poll",
	"post",
	"page",
	"shoutbox",
	"setting",
	"user",
	"user_activation",
	"redirect",
}
