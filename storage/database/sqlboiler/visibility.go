package boiledrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/masomo-lms/visibility/core"
	"github.com/masomo-lms/visibility/core/visibility"
	"github.com/masomo-lms/visibility/storage/database"
)

type visibilityRepository struct {
	exec     core.DBExecutor
	bindType int
}

var _ visibility.Repository = (*visibilityRepository)(nil) // interface compliance check

// NewVisibilityRepository runs visibility queries through sqlboiler raw queries.
// bindType is the placeholder style of exec's driver (sqlx.DOLLAR for postgres).
func NewVisibilityRepository(exec core.DBExecutor, bindType int) *visibilityRepository {
	if bindType == sqlx.UNKNOWN {
		bindType = sqlx.DOLLAR
	}
	return &visibilityRepository{exec: exec, bindType: bindType}
}

func (repo visibilityRepository) getExec(exec []boil.ContextExecutor) boil.ContextExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.exec
}

func (repo visibilityRepository) FindVisibilities(ctx context.Context, q visibility.Query) ([]visibility.Visibility, error) {
	return repo.FindVisibilitiesWith(ctx, q)
}

// FindVisibilitiesWith optionally runs on another executor, e.g. an open transaction.
func (repo visibilityRepository) FindVisibilitiesWith(ctx context.Context, q visibility.Query, exec ...boil.ContextExecutor) ([]visibility.Visibility, error) {
	query, args, err := visibility.Compile(q, repo.bindType)
	if err != nil {
		return nil, err
	}

	rows := make([]database.VisibilityRow, 0)
	if err = queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrapf(err, "querying %s visibility", q.Kind.Table)
	}
	return database.Visibilities(q.Kind, rows)
}
