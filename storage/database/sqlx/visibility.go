package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database"
)

type visibilityRepository struct {
	db *sqlx.DB
}

var _ visibility.Repository = (*visibilityRepository)(nil) // interface compliance check

func NewVisibilityRepository(db *sqlx.DB) *visibilityRepository {
	return &visibilityRepository{db: db}
}

func (repo visibilityRepository) FindVisibilities(ctx context.Context, q visibility.Query) ([]visibility.Visibility, error) {
	query, args, err := visibility.Compile(q, sqlx.BindType(repo.db.DriverName()))
	if err != nil {
		return nil, err
	}

	rows := make([]database.VisibilityRow, 0)
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "querying %s visibility", q.Kind.Table)
	}
	return database.Visibilities(q.Kind, rows)
}
