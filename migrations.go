package invoicedesk

import "embed"

// MigrationsFS holds the SQL migrations for every supported database driver,
// one directory per driver under migrations/.
//
//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var MigrationsFS embed.FS
