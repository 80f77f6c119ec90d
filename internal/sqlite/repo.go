package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

// Ensure Repo implements the Repository interface
var _ learningtool.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
