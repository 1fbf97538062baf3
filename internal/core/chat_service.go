package core

import (
	"context"
	"fmt"

	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

// StudentDirectory resolves students. A missing student is (nil, nil).
type StudentDirectory interface {
	GetStudentByID(ctx context.Context, id string) (*store.Student, error)
	CreateStudent(ctx context.Context, student *store.Student) error
}

// TranscriptStore persists and reads back a student's message history.
type TranscriptStore interface {
	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessagesByStudent(ctx context.Context, studentID string, limit int) ([]store.Message, error)
}

// ContextTurn is a caller-supplied view of one earlier turn.
type ContextTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatService owns students, their transcripts and tutor turns.
type ChatService struct {
	students        StudentDirectory
	transcript      TranscriptStore
	model           ModelAdapter
	transcriptLimit int
	log             *logger.Logger
}

func NewChatService(students StudentDirectory, transcript TranscriptStore, model ModelAdapter, transcriptLimit int, log *logger.Logger) *ChatService {
	if transcriptLimit <= 0 {
		transcriptLimit = 100
	}
	return &ChatService{
		students:        students,
		transcript:      transcript,
		model:           model,
		transcriptLimit: transcriptLimit,
		log:             log,
	}
}

func (s *ChatService) CreateStudent(ctx context.Context, name string, grade *string, interests []string) (*store.Student, error) {
	student := &store.Student{Name: name, Grade: grade, Interests: interests}
	if err := s.students.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return student, nil
}

func (s *ChatService) GetStudent(ctx context.Context, id string) (*store.Student, error) {
	student, err := s.students.GetStudentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return student, nil
}

// AppendMessage stores a transcript row supplied directly by a client.
func (s *ChatService) AppendMessage(ctx context.Context, studentID, content, role string) (*store.Message, error) {
	if role != store.RoleStudent && role != store.RoleTutor {
		return nil, fmt.Errorf("role %q: %w", role, ErrInvalidPayload)
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	msg := &store.Message{StudentID: studentID, Content: content, Role: role}
	if err := s.transcript.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) ListMessages(ctx context.Context, studentID string) ([]store.Message, error) {
	return s.transcript.ListMessagesByStudent(ctx, studentID, s.transcriptLimit)
}

// HandleTurn runs one chat turn. The student's message is stored before the
// model is called and survives a model failure; the tutor reply is stored
// only after the model answers.
func (s *ChatService) HandleTurn(ctx context.Context, studentID, text string, prior []ContextTurn) (string, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return "", err
	}

	studentMsg := store.Message{StudentID: studentID, Content: text, Role: store.RoleStudent}
	if err := s.transcript.AppendMessage(ctx, &studentMsg); err != nil {
		return "", fmt.Errorf("failed to store student message: %w", err)
	}

	plan := planTurn(student, text, prior)
	log := s.log.With("student_id", studentID, "fresh", plan.fresh())

	reply, err := s.runPlan(ctx, plan)
	if err != nil {
		log.Error("Model turn failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrUpstreamGeneration, err)
	}

	tutorMsg := store.Message{StudentID: studentID, Content: reply, Role: store.RoleTutor}
	if err := s.transcript.AppendMessage(ctx, &tutorMsg); err != nil {
		return "", fmt.Errorf("failed to store tutor message: %w", err)
	}

	log.Debug("Turn complete", "model_calls", len(plan.steps))
	return reply, nil
}

func (s *ChatService) runPlan(ctx context.Context, plan turnPlan) (string, error) {
	session, err := s.model.OpenSession(ctx, plan.history)
	if err != nil {
		return "", fmt.Errorf("failed to open model session: %w", err)
	}

	var reply string
	for _, step := range plan.steps {
		out, err := session.Send(ctx, step.text)
		if err != nil {
			return "", fmt.Errorf("%s step: %w", step.phase, err)
		}
		if step.phase == phaseLive {
			reply = out
		}
	}
	return reply, nil
}
