package services

import (
	"bytes"
	"html/template"
)

// html/template escapes every interpolated value for its context, so
// workflow text, steps and generated instructions cannot inject markup.
var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<h1>Your AI Workflow Instructions</h1>
<p>Hi there,</p>
<p>Here are the AI-suggested steps based on your workflow:</p>
<p><strong>Original Workflow:</strong></p>
<p>{{.OriginalText}}</p>
<p><strong>Suggested AI Steps:</strong></p>
{{if .Steps}}<ol>
{{range $i, $step := .Steps}}<li><strong>Step {{inc $i}}:</strong> {{$step}}</li>
{{end}}</ol>
{{else}}<p>No specific steps were suggested.</p>
{{end}}{{if .Instructions}}<p><strong>Your Custom AI Instructions:</strong></p>
<pre style="white-space: pre-wrap; font-family: inherit;">{{.Instructions}}</pre>
<p>Paste these instructions into your AI assistant's system prompt or custom instructions.</p>
{{else}}<p>Use these steps to guide your AI implementation.</p>
{{end}}<p>Best regards,<br>Your AI Workflow Helper</p>
`))

type emailData struct {
	OriginalText string
	Steps        []string
	Instructions string
}

// RenderEmail builds the HTML body for an instructions email. Instructions
// may be empty, in which case only the step list is included.
func RenderEmail(originalText string, steps []string, instructions string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		OriginalText: originalText,
		Steps:        steps,
		Instructions: instructions,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
