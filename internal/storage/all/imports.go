// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. The kinds made available are
// "postgres", "sqlite", "mssql" and "mysql".
//
// A binary that needs only a subset can import the backend packages it wants
// instead of this one.
package all

import (
	_ "bpmastats/internal/storage/mssql"
	_ "bpmastats/internal/storage/mysql"
	_ "bpmastats/internal/storage/postgres"
	_ "bpmastats/internal/storage/sqlite"
)
