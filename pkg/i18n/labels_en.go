package i18n

var labelsEN = map[string]string{
	"step.submit":    "Continue",
	"step.reset":     "Start over",
	"step.exception": "Error",

	"step.error.already_installed":          "This step has already been carried out.",
	"step.error.panic":                      "Unexpected failure: %v",
	"step.error.db.connect.error":           "could not connect to the database, error: %v",
	"step.error.read_failed":                "Could not read %v. Check filesystem permissions.",
	"step.error.config.invalid":             "The configuration file is invalid: %v",
	"step.error.config.missing":             "The configuration file %v does not exist.",
	"step.error.config.environment.missing": "The configuration file does not define environment %v.",

	"language.title": "Language",
	"language.text":  "Choose a language:",

	"config.title":                   "System configuration",
	"config.text":                    "This step will generate / overwrite the %v file.",
	"config.error.db.driver.invalid": "unsupported database type",
	"config.error.db.port.invalid":   "invalid port",
	"config.error.db.name.empty":     "database name must not be empty",
	"config.error.db.prefix.empty":   "prefix must not be empty",
	"config.error.db.prefix.invalid": "prefix contains invalid characters",
	"config.error.db.connect.error":  "could not connect to the database, error: %v",
	"config.error.db.create.error":   "could not create database (perhaps you need to create it manually via your webhosting's management page): %v",
	"config.error.write_failed":      "Could not write %v. Check filesystem permissions.",
	"config.db":                      "Database access",
	"config.db.driver":               "Type",
	"config.db.driver.help":          "database server type",
	"config.db.server":               "Server",
	"config.db.server.help":          "host (e.g. localhost or 127.0.0.1)",
	"config.db.port":                 "Port",
	"config.db.port.help":            "if a non-standard port is needed, enter it",
	"config.db.user":                 "User",
	"config.db.user.help":            "user name",
	"config.db.password":             "Password",
	"config.db.password.help":        "password (if required)",
	"config.db.name":                 "Database",
	"config.db.name.help":            "name of the database (if it doesn't exist, it will be created)",
	"config.db.prefix":               "Prefix",
	"config.db.prefix.help":          "table name prefix",

	"migration.title":                       "Database migration",
	"migration.text":                        "This step migrates the tables in the database.",
	"migration.error.confirmation.required": "it's necessary to confirm the start of migration",
	"migration.error.completed":             "The migration has already been completed, this step cannot be repeated.",
	"migration.error.policy.denied":         "the migration was refused by policy: %v",
	"migration.error.failed":                "the migration failed: %v",
	"migration.confirmation":                "Database migration",
	"migration.confirmation.text":           "In case the migration fails, it is advisable to back up the database before the actual launch.",
	"migration.confirmation.allow":          "I understand, start the database migration",
	"migration.warnings":                    "Warnings",

	"complete.title":                "Complete",
	"complete.whats_next":           "What's next?",
	"complete.success":              "Migration has been completed successfully!",
	"complete.migrationdir_warning": "Before you continue, you must remove the install directory.",
	"complete.goto.web":             "open the website",
	"complete.goto.admin":           "log into administration",
}
