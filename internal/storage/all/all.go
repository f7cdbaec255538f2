// Package all registers every run-history storage backend.
package all

import (
	_ "pagasa/internal/storage/mssql"
	_ "pagasa/internal/storage/postgres"
	_ "pagasa/internal/storage/sqlite"
)
