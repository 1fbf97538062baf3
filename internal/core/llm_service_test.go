package core

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGenaiHistory(t *testing.T) {
	got := toGenaiHistory([]ModelTurn{
		{Role: modelRoleUser, Text: "hi"},
		{Role: modelRoleModel, Text: "hello"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, got[0].Parts)
	assert.Equal(t, "model", got[1].Role)

	assert.Empty(t, toGenaiHistory(nil))
}

func TestResponseText(t *testing.T) {
	withParts := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
		}
	}

	text, err := responseText(withParts(genai.Text("Hello "), genai.Text("there.")))
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)

	text, err = responseText(withParts(genai.Text("  keep spacing  ")))
	require.NoError(t, err)
	assert.Equal(t, "  keep spacing  ", text)

	_, err = responseText(nil)
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(withParts(genai.Text("   ")))
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(withParts(genai.Blob{MIMEType: "image/png", Data: []byte{1}}))
	assert.ErrorIs(t, err, errEmptyResponse)
}
