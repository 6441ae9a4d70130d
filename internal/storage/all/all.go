// Package all registers every storage backend. Import it for side effects
// from a main package.
package all

import (
	_ "fileflow/internal/storage/mssql"
	_ "fileflow/internal/storage/mysql"
	_ "fileflow/internal/storage/postgres"
	_ "fileflow/internal/storage/sqlite"
)
