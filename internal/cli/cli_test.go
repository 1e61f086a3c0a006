package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"edu-arena/internal/domain"
	"edu-arena/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aiQuestions = "Here you go:\n```json\n[{\"question\":\"2+2?\",\"options\":[\"3\",\"4\",\"5\",\"6\"],\"correctAnswerIndex\":1}]\n```"

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "migrate", "import-questions", "chat", "normalize-lesson"} {
		assert.True(t, names[want], want)
	}
}

func TestImportQuestionsSavesParsedSet(t *testing.T) {
	store := memory.NewStaticQuestionLoader()

	set, err := importQuestions(context.Background(), store, "ai-1", "Arithmetic", aiQuestions)
	require.NoError(t, err)
	require.Len(t, set.Questions, 1)
	assert.True(t, set.Questions[0].IsAI)

	saved, err := store.LoadQuestionSet(context.Background(), "ai-1")
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic", saved.Title)
	assert.Equal(t, 1, saved.Questions[0].CorrectIndex)
}

func TestImportQuestionsRejectsGarbage(t *testing.T) {
	_, err := importQuestions(context.Background(), memory.NewStaticQuestionLoader(), "ai-1", "", "no json here")
	assert.ErrorIs(t, err, domain.ErrNoJSON)
}

func TestNormalizeLessonCommand(t *testing.T) {
	cmd := NewLessonCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("```json\n{\"type\":\"standard\",\"blocks\":[{\"type\":\"paragraph\",\"text\":\"hi\"}]}\n```"))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"type":"standard"`)
	assert.Contains(t, out.String(), `"text":"hi"`)
	assert.Contains(t, out.String(), `"id":"`)
}

func TestNormalizeLessonRejectsPlainText(t *testing.T) {
	cmd := NewLessonCmd()
	cmd.SetIn(strings.NewReader("just words"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
