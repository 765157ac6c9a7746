package studio

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is one queued generation. The init image is not carried in the row;
// workers read it back from the upload cache by fingerprint.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	Session   string `gorm:"size:64;index:idx_jobs_session,priority:1;index:uniq_job_idempo,unique,priority:1;not null"`
	InputSHA1 string `gorm:"size:40;not null"`

	Style      string  `gorm:"size:64;not null"`
	Userprompt string  `gorm:"type:text"`
	Strength   float64 `gorm:"not null"`
	Steps      int     `gorm:"not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_idempo,unique,priority:2"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	Output *string `gorm:"size:256"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "Jobs" }
