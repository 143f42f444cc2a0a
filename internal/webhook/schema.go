package webhook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidReply is returned when the workflow answers with a body that does
// not match the reply envelope.
var ErrInvalidReply = errors.New("webhook: invalid reply")

const replySchema = `{
  "type": "object",
  "required": ["message"],
  "properties": {
    "message":        {"type": "string", "minLength": 1},
    "htmlMessage":    {"type": ["string", "null"]},
    "sessionId":      {"type": ["string", "null"]},
    "conversationId": {"type": ["string", "null"]}
  }
}`

type replyValidator struct {
	schema *gojsonschema.Schema
}

func mustReplyValidator() *replyValidator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(replySchema))
	if err != nil {
		panic(fmt.Sprintf("webhook: compile reply schema: %v", err))
	}
	return &replyValidator{schema: schema}
}

func (v *replyValidator) validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidReply, strings.Join(errs, "; "))
	}
	return nil
}
