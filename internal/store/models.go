package store

import "time"

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     *string   `json:"grade"`     // Nullable
	Interests []string  `json:"interests"` // Stored as JSON text
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"` // "student" or "tutor"
	Timestamp time.Time `json:"timestamp"`
}

type ProgressRecord struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ModuleID   string    `json:"module_id"`
	ModuleName string    `json:"module_name"`
	Completed  bool      `json:"completed"`
	Score      *float64  `json:"score"` // Nullable
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressUpdate lists the fields an update may touch. A nil Score leaves
// the stored score as it is.
type ProgressUpdate struct {
	Completed bool
	Score     *float64
}

type Module struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Subject      string   `json:"subject"`
	Difficulty   int      `json:"difficulty"`
	Locked       bool     `json:"locked"`
	Requirements []string `json:"requirements"`
}

type MediaChunk struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
	MimeType  string    `json:"mime_type"`
	Path      string    `json:"path"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
}
