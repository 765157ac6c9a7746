package studio

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/inkbooth/inkbooth/internal/models"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) InsertGeneration(ctx context.Context, g *models.Generation) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) GetJobBySessionAndIdempotencyKey(ctx context.Context, session, key string) (*Job, error) {
	var j Job
	err := r.db.WithContext(ctx).
		Where("session = ? AND idempotency_key = ?", session, key).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobOrGetExisting tries to create a job, but if (session,
// idempotency_key) already exists, it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobBySessionAndIdempotencyKey(ctx, job.Session, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, outputPath string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"output": outputPath,
			"error":  nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
			"output": nil,
		}).Error
}
