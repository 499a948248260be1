// Package policy runs Open Policy Agent preflight checks before a migration.
//
// Policies are Rego modules whose deny set lists violations. Each violation is either a
// string or an object with "message" and "severity". Violations with severity error or
// critical block the migration; the rest are shown to the operator as warnings.
//
// Built-in policies refuse system databases and the prefix reserved for the migrator,
// and warn when the prefix does not look like a previous
// installation. Custom policies are loaded from a directory and reloaded when its files
// change:
//
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := engine.LoadPolicies(ctx, []string{"/etc/migrator/policies"}); err != nil {
//	    return err
//	}
//	loader := policy.NewLoader(logger)
//	_ = loader.Watch(ctx, []string{"/etc/migrator/policies"}, func(p []policy.Policy) error {
//	    return engine.Replace(ctx, p)
//	})
//
// The evaluation input is an Input document:
//
//	{
//	  "operation": "migrate",
//	  "adapter": "mysql",
//	  "database": "cms",
//	  "prefix": "sunlight",
//	  "tables": ["sunlight_article", ...],
//	  "missing_tables": ["redirect"],
//	  "version": "",
//	  "target_version": "8.0.0"
//	}
package policy
