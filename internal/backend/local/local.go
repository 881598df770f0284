// Package local serves the data service contract from the SQLite state
// database, for offline single-user use.
package local

import (
	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/db"
	"github.com/alexanderramin/feedlog/internal/repository"
)

var (
	_ backend.SessionTable = (*repository.SQLiteSessionRepo)(nil)
	_ backend.ProfileTable = (*repository.SQLiteUserProfileRepo)(nil)
	_ backend.Pinger       = (*repository.SQLiteSessionRepo)(nil)
)

// New returns a Service over conn. The caller owns conn.
func New(conn db.DBTX) *backend.Service {
	return &backend.Service{
		Kind:     backend.KindLocal,
		Sessions: repository.NewSQLiteSessionRepo(conn),
		Profiles: repository.NewSQLiteUserProfileRepo(conn),
		Auth:     backend.StaticAuthenticator{},
	}
}
