package policy

// BuiltinPolicies returns the preflight policies that are always loaded.
func BuiltinPolicies() []Policy {
	return []Policy{
		reservedDatabasePolicy(),
		prefixCollisionPolicy(),
		legacySchemaPolicy(),
	}
}

// reservedDatabasePolicy refuses to migrate into the server's own schemas.
func reservedDatabasePolicy() Policy {
	return Policy{
		Name:        "reserved-database",
		Description: "Refuses to migrate into system databases of the server",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"database", "safety"},
		Rego: `package migrator.policies.database

import rego.v1

reserved := {"mysql", "information_schema", "performance_schema", "sys"}

deny contains violation if {
	input.adapter == "mysql"
	lower(input.database) in reserved
	violation := {
		"message": sprintf("database %s is reserved by the server", [input.database]),
		"severity": "error",
	}
}`,
	}
}

// prefixCollisionPolicy keeps operators off the prefix reserved for the migrator itself.
func prefixCollisionPolicy() Policy {
	return Policy{
		Name:        "prefix-collision",
		Description: "Refuses the table prefix reserved for the migrator's own tables",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"prefix", "safety"},
		Rego: `package migrator.policies.prefix

import rego.v1

deny contains violation if {
	lower(input.prefix) == "migrator"
	violation := {
		"message": sprintf("table prefix %s is reserved for the migrator", [input.prefix]),
		"severity": "error",
	}
}`,
	}
}

// legacySchemaPolicy warns when prefixed tables exist without the settings table the
// previous version always had.
func legacySchemaPolicy() Policy {
	return Policy{
		Name:        "legacy-schema",
		Description: "Warns when the prefix does not look like a previous installation",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"schema"},
		Rego: `package migrator.policies.schema

import rego.v1

deny contains violation if {
	count(input.tables) > 0
	"setting" in input.missing_tables
	violation := {
		"message": sprintf("%d tables use prefix %s but %s_setting does not exist", [count(input.tables), input.prefix, input.prefix]),
		"severity": "warning",
	}
}`,
	}
}
