// Package prompt builds the messages sent to the LLM and decodes its answers.
package prompt

import (
	"strings"
	"text/template"

	"github.com/aretw0/joule/pkg/domain"
)

// ProceedDirective asks the model to move on after a step was accepted.
const ProceedDirective = "Proceed to the next workflow step and prompt the user accordingly."

// DefaultValidationError is used when a validator rejects without a reason.
const DefaultValidationError = "Input is not valid for this step."

// FormatInstructions describes the structured answer the model must produce.
const FormatInstructions = `Respond with a single JSON object and nothing else:
{"answer": "<message for the user>", "extracted_value": <value the user gave for the step field, or null>}
extracted_value must be a number for number fields, true or false for boolean fields and a string otherwise.
Use null when the user did not provide a value for the step field.`

// Context is the per-turn data rendered into the system message.
type Context struct {
	Now                 string
	Timezone            string
	Workflow            domain.WorkflowName
	WorkflowInstruction string
	StepInstruction     string
	StepField           string
	StepFieldType       string
	UserMail            string
	MessageFiles        string
}

var systemTemplate = template.Must(template.New("system").Parse(`Provide helpful answers using the format below.
{{.FormatInstructions}}

CURRENT CONTEXT:
- Current datetime: {{.Now}} ({{.Timezone}}).
- Active workflow: {{.Workflow}}
{{- if .UserMail}}
- User e-mail: {{.UserMail}}
{{- end}}
{{- if .MessageFiles}}
- Attached files: {{.MessageFiles}}
{{- end}}

WORKFLOW INSTRUCTION:
{{.WorkflowInstruction}}

WORKFLOW STEP INSTRUCTION:
{{.StepInstruction}}
- Step field: {{.StepField}} ({{.StepFieldType}})
`))

// System renders the system message.
func System(c Context) (string, error) {
	if c.StepField == "" {
		c.StepField = "none"
	}
	if c.StepFieldType == "" {
		c.StepFieldType = string(domain.KindUnknown)
	}

	var b strings.Builder
	err := systemTemplate.Execute(&b, struct {
		Context
		FormatInstructions string
	}{c, FormatInstructions})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Messages assembles system context, history and the user query in order.
func Messages(system string, history []domain.Turn, query string) []domain.Message {
	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.SystemMessage(system))
	msgs = append(msgs, domain.MessagesFromHistory(history)...)
	msgs = append(msgs, domain.UserMessage(query))
	return msgs
}

// ValidationFailure is the directive sent after a step rejected the input.
func ValidationFailure(reason string) string {
	if reason == "" {
		reason = DefaultValidationError
	}
	return "The provided input failed validation: " + reason +
		". Explain the issue shortly and guide the user to provide a corrected response."
}
