package sqlite

import "fmt"

// seq is the insertion-order key: AUTOINCREMENT never reuses values, so FIFO
// order survives deletes and process restarts.
const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	model_id TEXT NOT NULL,
	model TEXT NOT NULL,
	operation TEXT NOT NULL,
	data TEXT NOT NULL,
	condition TEXT NOT NULL DEFAULT '',
	owner TEXT NOT NULL DEFAULT '',
	saved_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_model_id ON %[1]s (model_id);`

// Schema returns the DDL for a mutation queue table.
func Schema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, name), nil
}
