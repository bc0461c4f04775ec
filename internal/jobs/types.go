package jobs

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

type Kind string

const (
	KindClip     Kind = "clip"
	KindDownload Kind = "download"
	KindAudio    Kind = "audio"
)

// Request carries the parameters a job was created with. Persisting them
// alongside the record allows interrupted jobs to be re-run after a restart.
type Request struct {
	SourceURL string  `json:"source_url"`
	StartSec  float64 `json:"start_sec,omitempty"`
	EndSec    float64 `json:"end_sec,omitempty"`
	Quality   string  `json:"quality,omitempty"`
}

type Record struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Error       string    `json:"error,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	OutputFile  string    `json:"output_file,omitempty"`
	Request     Request   `json:"request"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
