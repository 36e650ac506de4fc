package repository

import "database/sql"

// PostgresStore 组合各 Postgres Repository，满足 Store
type PostgresStore struct {
	*PostgresFloorPlansRepo
	*PostgresVersionsRepo
	*PostgresEditorsRepo
	*PostgresTransactor
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		PostgresFloorPlansRepo: NewPostgresFloorPlansRepo(db),
		PostgresVersionsRepo:   NewPostgresVersionsRepo(db),
		PostgresEditorsRepo:    NewPostgresEditorsRepo(db),
		PostgresTransactor:     NewPostgresTransactor(db),
	}
}

var _ Store = (*PostgresStore)(nil)
