package token

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkbooth/inkbooth/internal/models"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// EnsureSession records the first contact of a session. Re-registering an
// existing id is an insert-or-ignore, the original context row wins.
func (r *Repo) EnsureSession(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s).Error
}

func (r *Repo) InsertInput(ctx context.Context, in *models.Input) error {
	return r.db.WithContext(ctx).Create(in).Error
}
