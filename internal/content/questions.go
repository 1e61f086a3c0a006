package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"edu-arena/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	errInvalidLesson = errors.New("ai output is not lesson json")
	validate         = validator.New()
)

// aiQuestion accepts the field spellings AI models commonly produce.
type aiQuestion struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Prompt             string   `json:"prompt"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
	CorrectIndex       *int     `json:"correctIndex"`
}

// ParseQuestions turns AI output into a validated question set. Every
// question is flagged as AI generated.
func ParseQuestions(setID, title, aiOutput string) (domain.QuestionSet, error) {
	payload, err := ExtractJSON(aiOutput)
	if err != nil {
		return domain.QuestionSet{}, err
	}

	var items []aiQuestion
	if strings.HasPrefix(payload, "{") {
		var wrapped struct {
			Questions []aiQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapped); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("decode questions: %w", err)
		}
		items = wrapped.Questions
	} else if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("decode questions: %w", err)
	}
	if len(items) == 0 {
		return domain.QuestionSet{}, domain.ErrNoQuestions
	}

	set := domain.QuestionSet{ID: setID, Title: title}
	for i, item := range items {
		q := domain.Question{
			ID:      item.ID,
			Prompt:  firstNonEmpty(item.Question, item.Prompt, item.Text),
			Options: item.Options,
			IsAI:    true,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		switch {
		case item.CorrectAnswerIndex != nil:
			q.CorrectIndex = *item.CorrectAnswerIndex
		case item.CorrectIndex != nil:
			q.CorrectIndex = *item.CorrectIndex
		default:
			return domain.QuestionSet{}, fmt.Errorf("question %d: missing correct answer index", i+1)
		}
		set.Questions = append(set.Questions, q)
	}

	if err := ValidateSet(set); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

// ValidateSet checks a question set before it is stored or played.
func ValidateSet(set domain.QuestionSet) error {
	if err := validate.Struct(set); err != nil {
		return fmt.Errorf("invalid question set: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
