package service

import (
	"bytes"
	"encoding/json"
	"feedbacklens/internal/model"
	"strings"
)

// Prompt is one of the fixed analysis prompts. The set is closed: only the
// variants in this file implement it.
type Prompt interface {
	render() (string, error)
	// Keys lists the top-level JSON keys the model is asked to return
	Keys() []string
}

// ClassPrompt asks for a class-wide analysis of every group
type ClassPrompt struct {
	Data model.Aggregate
}

// GroupPrompt asks for an analysis of one group
type GroupPrompt struct {
	Data model.Group
}

// StudentPrompt asks for an analysis of one student under a named framework
type StudentPrompt struct {
	Data      model.StudentData
	Framework string
}

// EvaluationPrompt asks the model to score a single feedback text
type EvaluationPrompt struct {
	FeedbackText string
}

const classTemplate = `
You are an expert educational analyst. Analyze the following feedback data from multiple student groups:

{feedback_data}

Please provide a comprehensive analysis addressing:
1. Overall class trends and patterns
2. Group performance comparisons
3. Topic-wise analysis of strengths and weaknesses
4. Self-assessment vs peer-assessment alignment
5. Groups requiring immediate attention
6. Groups that need more challenging tasks

Format your response as a structured JSON with the following sections:
{
    "overall_trends": {},
    "group_comparisons": {},
    "topic_analysis": {},
    "assessment_alignment": {},
    "attention_needed": {},
    "challenge_needed": {}
}
`

const groupTemplate = `
Analyze the following feedback data for a specific group:

{group_data}

Provide detailed insights about:
1. Group dynamics and collaboration
2. Individual contributions
3. Topic mastery levels
4. Areas of improvement
5. Notable achievements

Format your response as a structured JSON with the following sections:
{
    "group_dynamics": {},
    "contributions": {},
    "topic_mastery": {},
    "improvement_areas": {},
    "achievements": {}
}
`

const studentTemplate = `
Analyze the following feedback for a specific student:

{student_data}

Evaluate the feedback using the {framework} framework and provide:
1. Structured feedback analysis
2. Key strengths
3. Areas for improvement
4. Development recommendations
5. Notable patterns or concerns

Format your response as a structured JSON with the following sections:
{
    "framework_analysis": {},
    "strengths": [],
    "improvement_areas": [],
    "recommendations": [],
    "patterns": {}
}
`

const evaluationTemplate = `
As an expert educational evaluator, assess the quality of the following feedback:

{feedback_text}

Consider the following criteria:
1. Specificity and clarity
2. Constructive nature
3. Actionability
4. Alignment with learning objectives
5. Evidence-based observations

Provide a score (0-100) and detailed justification.
Format your response as:
{
    "score": number,
    "justification": string,
    "criterion_scores": {
        "specificity": number,
        "constructiveness": number,
        "actionability": number,
        "alignment": number,
        "evidence": number
    }
}
`

// summaryTemplate is free text; it is not part of the Prompt set
const summaryTemplate = `Analyze the following student feedback and provide a summary based on these criteria:
1. Technical Skills
2. Communication
3. Team Collaboration

Feedback: {feedback_text}

Please provide a brief summary for each criterion.`

func (p ClassPrompt) render() (string, error) {
	data, err := indentJSON(p.Data)
	if err != nil {
		return "", err
	}
	return strings.Replace(classTemplate, "{feedback_data}", data, 1), nil
}

func (p ClassPrompt) Keys() []string {
	return []string{"overall_trends", "group_comparisons", "topic_analysis", "assessment_alignment", "attention_needed", "challenge_needed"}
}

func (p GroupPrompt) render() (string, error) {
	data, err := indentJSON(p.Data)
	if err != nil {
		return "", err
	}
	return strings.Replace(groupTemplate, "{group_data}", data, 1), nil
}

func (p GroupPrompt) Keys() []string {
	return []string{"group_dynamics", "contributions", "topic_mastery", "improvement_areas", "achievements"}
}

func (p StudentPrompt) render() (string, error) {
	data, err := indentJSON(p.Data)
	if err != nil {
		return "", err
	}
	return strings.NewReplacer("{student_data}", data, "{framework}", p.Framework).Replace(studentTemplate), nil
}

func (p StudentPrompt) Keys() []string {
	return []string{"framework_analysis", "strengths", "improvement_areas", "recommendations", "patterns"}
}

func (p EvaluationPrompt) render() (string, error) {
	return strings.Replace(evaluationTemplate, "{feedback_text}", p.FeedbackText, 1), nil
}

func (p EvaluationPrompt) Keys() []string {
	return []string{"score", "justification", "criterion_scores"}
}

func renderSummary(feedback string) string {
	return strings.Replace(summaryTemplate, "{feedback_text}", feedback, 1)
}

func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
