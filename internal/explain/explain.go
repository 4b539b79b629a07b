package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
)

// Static texts shown instead of a generated explanation.
const (
	FallbackEmpty       = "Unable to generate explanation at this time."
	FallbackUnavailable = "Our AI tutor is currently taking a break. Please check the official manual."
)

// Request is what the tutor needs to explain one question.
type Request struct {
	Question     string
	Answer       string
	Jurisdiction jurisdiction.Jurisdiction
}

// Explainer produces freeform explanatory text for a question's correct answer.
type Explainer interface {
	Explain(ctx context.Context, req Request) (string, error)
}

// ExplainerFunc adapts a function to Explainer.
type ExplainerFunc func(ctx context.Context, req Request) (string, error)

func (f ExplainerFunc) Explain(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unavailable is used when no provider is configured; every call fails.
var Unavailable Explainer = ExplainerFunc(func(context.Context, Request) (string, error) {
	return "", fmt.Errorf("explanation provider not configured")
})

// BuildPrompt renders the tutor instruction sent to the text-generation model.
func BuildPrompt(req Request) string {
	j := req.Jurisdiction
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert driving instructor for the state of %s.\n", j.Name)
	b.WriteString("A student is confused about the following traffic rule question.\n\n")
	fmt.Fprintf(&b, "Question: %q\n", req.Question)
	fmt.Fprintf(&b, "Correct Answer: %q\n\n", req.Answer)
	fmt.Fprintf(&b, "Please provide a concise, encouraging, and clear explanation of WHY this is the answer "+
		"based on general traffic safety principles and specific %s %s regulations. Keep it under 50 words.\n",
		j.Name, j.Agency)
	return b.String()
}
