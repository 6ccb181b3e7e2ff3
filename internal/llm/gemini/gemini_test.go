package gemini

import (
	"context"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"medrag/internal/domain"
)

func TestCompletePassesSystemAndUser(t *testing.T) {
	var gotSystem, gotUser string
	c := newClient(Config{}, func(_ context.Context, system, user string) (string, error) {
		gotSystem, gotUser = system, user
		return "cardiologist", nil
	})
	out, err := c.Complete(context.Background(), "sys", "question")
	require.NoError(t, err)
	assert.Equal(t, "cardiologist", out)
	assert.Equal(t, "sys", gotSystem)
	assert.Equal(t, "question", gotUser)
	assert.NoError(t, c.Close())
}

func TestCompleteServerErrorIsTransient(t *testing.T) {
	c := newClient(Config{}, func(context.Context, string, string) (string, error) {
		return "", &googleapi.Error{Code: 503, Message: "overloaded"}
	})
	_, err := c.Complete(context.Background(), "", "q")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestCompleteBadRequestIsPermanent(t *testing.T) {
	c := newClient(Config{}, func(context.Context, string, string) (string, error) {
		return "", &googleapi.Error{Code: 400, Message: "bad"}
	})
	_, err := c.Complete(context.Background(), "", "q")
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}

func TestResponseText(t *testing.T) {
	_, err := responseText(nil)
	assert.Error(t, err)
	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.Error(t, err)

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("More "), genai.Text("information is needed.")}},
	}}}
	out, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "More information is needed.", out)
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("MEDRAG_TEST_GEMINI_KEY", "")
	_, err := NewClient(context.Background(), Config{APIKeyEnv: "MEDRAG_TEST_GEMINI_KEY"})
	assert.Error(t, err)
}
