package content

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// LessonKind discriminates the stored shapes of lesson content.
type LessonKind string

const (
	LessonBlocks     LessonKind = "blocks"
	LessonStandard   LessonKind = "standard"
	LessonPhilosophy LessonKind = "philosophy_structured"
	LessonPlain      LessonKind = "plain"
)

// Block types rendered as searchable lists.
var listBlockTypes = map[string]bool{
	"date_entry": true,
	"term_entry": true,
	"char_entry": true,
	"math_law":   true,
}

type Block struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Text   string `json:"text"`
	Color  string `json:"color,omitempty"`
	Extra1 string `json:"extra_1,omitempty"`
	Extra2 string `json:"extra_2,omitempty"`
}

type Philosopher struct {
	Name     string `json:"name"`
	Idea     string `json:"idea,omitempty"`
	Argument string `json:"argument,omitempty"`
	Quote    string `json:"quote,omitempty"`
}

type Theory struct {
	Title        string        `json:"title,omitempty"`
	Philosophers []Philosopher `json:"philosophers"`
}

type Position struct {
	Title    string   `json:"title"`
	Theories []Theory `json:"theories"`
	Critique string   `json:"critique,omitempty"`
}

// Philosophy is the structured essay layout: problem, opposing positions,
// synthesis and conclusion.
type Philosophy struct {
	Problem       string     `json:"problem,omitempty"`
	Positions     []Position `json:"positions"`
	SynthesisType string     `json:"synthesisType,omitempty"`
	Synthesis     string     `json:"synthesis,omitempty"`
	Conclusion    string     `json:"conclusion,omitempty"`
}

// Lesson is lesson content decoded once into an explicit variant.
type Lesson struct {
	Kind       LessonKind
	VideoURL   string
	Blocks     []Block
	Philosophy *Philosophy
	Plain      string
}

// IsList reports whether the lesson is a searchable list of entries.
func (l Lesson) IsList() bool {
	return len(l.Blocks) > 0 && listBlockTypes[l.Blocks[0].Type]
}

// Search filters list lessons by text or first extra field.
func (l Lesson) Search(term string) []Block {
	if !l.IsList() || term == "" {
		return l.Blocks
	}
	var out []Block
	for _, b := range l.Blocks {
		if strings.Contains(b.Text, term) || (b.Extra1 != "" && strings.Contains(b.Extra1, term)) {
			out = append(out, b)
		}
	}
	return out
}

type envelope struct {
	Type     string          `json:"type"`
	VideoURL string          `json:"videoUrl"`
	Blocks   json.RawMessage `json:"blocks"`
}

// DecodeLesson decodes stored lesson content. Anything that is not one of
// the JSON variants is kept as plain text.
func DecodeLesson(raw string) Lesson {
	trimmed := strings.TrimSpace(raw)
	plain := Lesson{Kind: LessonPlain, Plain: raw}

	if strings.HasPrefix(trimmed, "[") {
		var blocks []Block
		if err := json.Unmarshal([]byte(trimmed), &blocks); err != nil {
			return plain
		}
		return Lesson{Kind: LessonBlocks, Blocks: withIDs(blocks)}
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return plain
	}
	switch {
	case env.Type == string(LessonPhilosophy):
		var p Philosophy
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return plain
		}
		return Lesson{Kind: LessonPhilosophy, VideoURL: env.VideoURL, Philosophy: &p}
	case env.Type == string(LessonStandard) || len(env.Blocks) > 0:
		var blocks []Block
		if len(env.Blocks) > 0 {
			if err := json.Unmarshal(env.Blocks, &blocks); err != nil {
				return plain
			}
		}
		return Lesson{Kind: LessonStandard, VideoURL: env.VideoURL, Blocks: withIDs(blocks)}
	}
	return plain
}

// ParseLesson extracts and decodes lesson content from raw AI output.
func ParseLesson(aiOutput string) (Lesson, error) {
	payload, err := ExtractJSON(aiOutput)
	if err != nil {
		return Lesson{}, err
	}
	lesson := DecodeLesson(payload)
	if lesson.Kind == LessonPlain {
		return Lesson{}, errInvalidLesson
	}
	return lesson, nil
}

// Encode renders the lesson back to its stored JSON shape.
func (l Lesson) Encode() (string, error) {
	var v any
	switch l.Kind {
	case LessonBlocks:
		v = l.Blocks
	case LessonStandard:
		v = struct {
			Type     string  `json:"type"`
			VideoURL string  `json:"videoUrl,omitempty"`
			Blocks   []Block `json:"blocks"`
		}{string(LessonStandard), l.VideoURL, l.Blocks}
	case LessonPhilosophy:
		v = struct {
			Type     string `json:"type"`
			VideoURL string `json:"videoUrl,omitempty"`
			*Philosophy
		}{string(LessonPhilosophy), l.VideoURL, l.Philosophy}
	default:
		return l.Plain, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func withIDs(blocks []Block) []Block {
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.NewString()[:9]
		}
	}
	return blocks
}
