package domain

import "time"

// JobStatus enumerates the job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// ContentType enumerates the two supported article kinds.
type ContentType string

const (
	ContentTypeReview ContentType = "review"
	ContentTypeInfo   ContentType = "info"
)

// ValidContentType reports whether v is one of the enumerated kinds.
func ValidContentType(v string) bool {
	return v == string(ContentTypeReview) || v == string(ContentTypeInfo)
}

// ValidLengthHint reports whether n is one of the two supported length targets.
func ValidLengthHint(n int) bool {
	return n == 1000 || n == 1500
}

// Job is one request to generate a single article from guide text and
// optional photos. Status moves pending → processing → done|error; an
// operator retry resets error → pending.
type Job struct {
	ID            string
	ClientID      string
	StylePresetID *string
	GuideText     string
	ExtraPrompt   *string
	ContentType   ContentType
	LengthHint    int
	Status        JobStatus
	ErrorMessage  *string
	CreatedBy     *string
	BatchID       *string
	DownloadedBy  *string
	DownloadedAt  *time.Time
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// JobImage is one uploaded photo owned by exactly one job.
type JobImage struct {
	ID          string
	JobID       string
	StoragePath string
	CreatedAt   time.Time
}

// Article is the generated output for a job, at most one per job.
type Article struct {
	ID        string
	JobID     string
	ClientID  string
	Content   string
	RawPrompt string
	ModelName string
	CreatedAt time.Time
}
