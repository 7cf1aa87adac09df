package services

import (
	"bytes"
	"fmt"
	"text/template"
)

const stepsPromptTemplate = `Analyze the following user-described workflow and break it down into exactly {{.StepCount}} distinct, actionable steps describing how an AI assistant could help the person carry out this work.

Each step must describe assistance that keeps the person in charge: drafting, summarizing, organizing, checking or suggesting. Never describe the AI taking over, automating away or replacing the person's judgment or role.

Respond ONLY with a JSON array of {{.StepCount}} strings, where each string is one step. Do not add any other text, explanation or markdown.
Example response: ["Step 1 description", "Step 2 description", "Step 3 description"]

Workflow: {{printf "%q" .WorkflowText}}`

const instructionsPromptTemplate = `You are writing a system prompt that will configure an AI assistant to support a person with one of their workflows.

The person described their workflow as:
{{printf "%q" .WorkflowText}}

These are the ways the assistant should help, in order:
{{range $i, $step := .Steps}}{{inc $i}}. {{$step}}
{{else}}(no specific steps were suggested; infer sensible ways to assist from the workflow)
{{end}}
Write the system prompt as plain text with exactly these four sections, each introduced by its heading on its own line:

Role:
Context:
Instructions:
Constraints:

The assistant must always act as a helper to the person: it drafts, suggests, summarizes and checks, and the person reviews and decides. It must never act on the person's behalf, replace the person, or make final decisions for them. State this explicitly in the Constraints section.

Respond with the system prompt only.`

// promptSet renders the prompts sent to the generation API.
type promptSet struct {
	steps        *template.Template
	instructions *template.Template
}

type stepsPromptData struct {
	StepCount    int
	WorkflowText string
}

type instructionsPromptData struct {
	WorkflowText string
	Steps        []string
}

func newPromptSet() (*promptSet, error) {
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}

	steps, err := template.New("steps").Funcs(funcs).Parse(stepsPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse steps template: %w", err)
	}
	instructions, err := template.New("instructions").Funcs(funcs).Parse(instructionsPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instructions template: %w", err)
	}
	return &promptSet{steps: steps, instructions: instructions}, nil
}

// Steps asks for exactly stepCount assistance steps as a JSON array.
func (p *promptSet) Steps(workflowText string, stepCount int) (string, error) {
	var buf bytes.Buffer
	err := p.steps.Execute(&buf, stepsPromptData{StepCount: stepCount, WorkflowText: workflowText})
	return buf.String(), err
}

// Instructions asks for a system prompt with Role, Context, Instructions and
// Constraints sections built around the stored steps.
func (p *promptSet) Instructions(workflowText string, steps []string) (string, error) {
	var buf bytes.Buffer
	err := p.instructions.Execute(&buf, instructionsPromptData{WorkflowText: workflowText, Steps: steps})
	return buf.String(), err
}
