package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"synthesis.io/tutor-backend/internal/logger"
)

const (
	modelRoleUser  = "user"
	modelRoleModel = "model"

	defaultChatModelName = "gemini-1.5-pro-latest"
)

// ModelTurn is one role-tagged entry of the history handed to the model.
// Role is "user" or "model".
type ModelTurn struct {
	Role string
	Text string
}

// ModelAdapter opens a conversation seeded with history.
type ModelAdapter interface {
	OpenSession(ctx context.Context, history []ModelTurn) (ModelSession, error)
}

// ModelSession sends one message per call and remembers the exchange for
// the lifetime of the handle only.
type ModelSession interface {
	Send(ctx context.Context, text string) (string, error)
}

type LLMService struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
}

func NewLLMService(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultChatModelName
	}
	return &LLMService{client: client, modelName: modelName, log: log}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Warn("Error closing GenAI client", "error", err)
		} else {
			s.log.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) chatModel() *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.modelName)

	temp := float32(0.9)
	topP := float32(1)
	topK := int32(1)
	maxTokens := int32(2048)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: &maxTokens,
	}
	return model
}

func (s *LLMService) OpenSession(ctx context.Context, history []ModelTurn) (ModelSession, error) {
	chatSession := s.chatModel().StartChat()
	chatSession.History = toGenaiHistory(history)
	return &geminiSession{chat: chatSession, log: s.log}, nil
}

type geminiSession struct {
	chat *genai.ChatSession
	log  *logger.Logger
}

func (g *geminiSession) Send(ctx context.Context, text string) (string, error) {
	resp, err := g.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	out, err := responseText(resp)
	if err != nil {
		g.log.Warn("Gemini response unusable", "error", err)
		return "", err
	}
	return out, nil
}

func toGenaiHistory(history []ModelTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		out = append(out, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return out
}

var errEmptyResponse = errors.New("gemini response was empty or had no text parts")

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	if strings.TrimSpace(responseText.String()) == "" {
		return "", errEmptyResponse
	}
	return responseText.String(), nil
}
