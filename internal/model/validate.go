package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"application-pdf/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/answers.schema.json
var answersSchemaJSON string

var answersSchema = mustSchema(answersSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile answers schema: %v", err))
	}
	return s
}

// ParseAnswers validates the raw answers JSON against the answers schema and
// decodes it. An empty string means no answers were given.
func ParseAnswers(raw string) (domain.Answers, []FieldError) {
	var answers domain.Answers
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return answers, nil
	}

	res, err := answersSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return answers, []FieldError{{Field: "answers", Message: "Must be a JSON object"}}
	}
	if !res.Valid() {
		details := make([]FieldError, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			field := "answers"
			if f := e.Field(); f != "" && f != "(root)" {
				field += "." + f
			}
			details = append(details, FieldError{Field: field, Message: e.Description()})
		}
		return answers, details
	}

	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return answers, []FieldError{{Field: "answers", Message: "Must be a JSON object"}}
	}
	return answers, nil
}
