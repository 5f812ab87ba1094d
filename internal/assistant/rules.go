package assistant

import (
	"context"
	"fmt"
	"strings"
)

// rule maps a set of trigger keywords to a canned response.
type rule struct {
	keywords []string
	response string
}

// ruleTable is checked top to bottom and the first match wins. The order
// is load-bearing: a question containing both "help" and "derivative"
// gets the derivative response because that rule is checked first.
var ruleTable = []rule{
	{
		keywords: []string{"derivative", "calculus"},
		response: "📚 For derivatives, remember the power rule: d/dx[x^n] = nx^(n-1). For example, d/dx[x³] = 3x². Would you like me to explain a specific derivative problem?",
	},
	{
		keywords: []string{"integral", "integration"},
		response: "🧮 Integration is the reverse of differentiation. The basic power rule for integration is: ∫x^n dx = x^(n+1)/(n+1) + C. What specific integration problem are you working on?",
	},
	{
		keywords: []string{"limit"},
		response: "📈 Limits help us understand function behavior as x approaches a value. Use L'Hôpital's rule for indeterminate forms like 0/0. What limit are you trying to evaluate?",
	},
	{
		keywords: []string{"physics", "force", "newton"},
		response: "⚡ Newton's laws are fundamental! F = ma (Force = mass × acceleration). Remember: objects at rest stay at rest unless acted upon by a force. What physics concept can I help clarify?",
	},
	{
		keywords: []string{"velocity", "acceleration"},
		response: "🚀 Velocity is the rate of change of position (v = Δx/Δt), while acceleration is the rate of change of velocity (a = Δv/Δt). Are you working on kinematics problems?",
	},
	{
		keywords: []string{"study", "learn", "memorize"},
		response: "🎯 Try active recall and spaced repetition! Break complex topics into smaller chunks, teach concepts to others, and practice regularly. What subject are you studying?",
	},
	{
		keywords: []string{"exam", "test"},
		response: "📝 For exam prep: 1) Create a study schedule, 2) Practice past papers, 3) Form study groups, 4) Get enough sleep before the exam. What exam are you preparing for?",
	},
	{
		keywords: []string{"help", "explain"},
		response: "💡 I'm here to help! I can assist with math, physics, study techniques, and academic concepts. Try asking specific questions like '@ai explain derivatives' or '@ai help with physics forces'.",
	},
}

// RuleAnswer is a pure function from question to canned response. It is
// the single source of topic responses, shared by the rule responder and
// the network responder's fallback path.
func RuleAnswer(question string) string {
	lower := strings.ToLower(question)
	for _, r := range ruleTable {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.response
			}
		}
	}
	return fmt.Sprintf("🤖 I understand you're asking about: %q. I can help with math (calculus, algebra), physics (mechanics, forces), and study techniques. Try asking more specific questions for better assistance!", question)
}

// RuleResponder answers questions from the canned rule table. It holds
// no state and never fails.
type RuleResponder struct{}

// NewRuleResponder creates a rule-based responder.
func NewRuleResponder() *RuleResponder {
	return &RuleResponder{}
}

// Respond selects the first matching canned response for the question.
func (r *RuleResponder) Respond(ctx context.Context, question string) Reply {
	return Reply{Success: true, Text: RuleAnswer(question)}
}
