// Package config reads and writes the migrator configuration file.
//
// The file is YAML with a default environment and a map of named environments, each
// holding the connection parameters of one target database:
//
//	default_environment: production
//	environments:
//	  production:
//	    adapter: mysql
//	    host: localhost
//	    port: 3306
//	    user: root
//	    pass: secret
//	    name: cms
//	    table_prefix: sunlight
//
// Values posted by the configuration step are validated with Validator before they are
// written; validation failures map to the wizard error codes (db.name.empty and so on).
package config
