package vrsa

import "embed"

// MigrationsFS holds the SQL migrations applied by the Postgres store driver.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
