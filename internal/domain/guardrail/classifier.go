package guardrail

import (
	"regexp"
	"strings"
)

// Category is a blocked message class.
type Category string

const (
	CategoryPromptInjection    Category = "prompt_injection"
	CategoryInappropriate      Category = "inappropriate"
	CategoryOffTopic           Category = "off_topic"
	CategoryBulkExtraction     Category = "bulk_extraction"
	CategorySystemManipulation Category = "system_manipulation"
)

// Severity of a blocked category.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Decision is produced fresh for every message and never persisted.
type Decision struct {
	Allowed     bool     `json:"allowed"`
	BlockedType Category `json:"blocked_type,omitempty"`
	Severity    Severity `json:"severity,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// Context carries what the classifier may consider besides the message text.
type Context struct {
	// FileCount is how many files the scope currently holds. Above
	// bulkWideAt the bulk-extraction rule widens its net.
	FileCount int
}

// bulkWideAt is the file count at which broad "give me everything" style
// requests start matching the bulk-extraction rule.
const bulkWideAt = 5

// Rule is one predicate in the ordered taxonomy. Patterns match against the
// lowercased message; WidePatterns only apply once the scope holds at least
// bulkWideAt files.
type Rule struct {
	Category     Category
	Severity     Severity
	Reason       string
	Patterns     []*regexp.Regexp
	WidePatterns []*regexp.Regexp
}

func (r Rule) matches(msg string, c Context) bool {
	for _, p := range r.Patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	if c.FileCount >= bulkWideAt {
		for _, p := range r.WidePatterns {
			if p.MatchString(msg) {
				return true
			}
		}
	}
	return false
}

// Classifier evaluates the fixed rule table in order. First match wins, so
// a message carries at most one blocked category and the same message always
// yields the same classification.
type Classifier struct {
	rules []Rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// Classify inspects one inbound chat message. Messages matching no rule are
// allowed with no blocked type.
func (c *Classifier) Classify(message string, ctx Context) Decision {
	msg := strings.ToLower(message)
	for _, r := range c.rules {
		if r.matches(msg, ctx) {
			return Decision{
				Allowed:     false,
				BlockedType: r.Category,
				Severity:    r.Severity,
				Reason:      r.Reason,
			}
		}
	}
	return Decision{Allowed: true}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// defaultRules is the fixed taxonomy, evaluated in this exact order:
// prompt_injection, inappropriate, off_topic, bulk_extraction,
// system_manipulation. Legitimate domain queries (record identifiers,
// comparisons, quantitative questions about uploaded data) must match none
// of these.
func defaultRules() []Rule {
	return []Rule{
		{
			Category: CategoryPromptInjection,
			Severity: SeverityHigh,
			Reason:   "This message attempts to override the assistant's operating instructions and was not processed.",
			Patterns: compileAll(
				`ignore\s+(all\s+)?(previous|prior|above|earlier)\s+instructions`,
				`disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules)`,
				`forget\s+(everything|all\s+previous|your\s+instructions)`,
				`system\s+prompt`,
				`you\s+are\s+now\s+`,
				`pretend\s+(to\s+be|you\s+are)`,
				`act\s+as\s+(if\s+you|a\s|an\s)`,
				`new\s+instructions?\s*:`,
				`\bjailbreak\b`,
				`\bdan\s+mode\b`,
			),
		},
		{
			Category: CategoryInappropriate,
			Severity: SeverityLow,
			Reason:   "The assistant only answers questions about your workspace's business data.",
			Patterns: compileAll(
				`\bjokes?\b`,
				`\bpoems?\b`,
				`\briddles?\b`,
				`tell\s+me\s+a\s+(story|limerick)`,
				`sing\s+(me\s+)?a\s+song`,
				`pick[\s-]?up\s+line`,
				`\bflirt\b`,
			),
		},
		{
			Category: CategoryOffTopic,
			Severity: SeverityLow,
			Reason:   "General-knowledge questions are outside this workspace's uploaded data.",
			Patterns: compileAll(
				`\bweather\b`,
				`\bforecast\b`,
				`\bsports?\b`,
				`\b(football|soccer|nba|nfl|cricket)\b`,
				`world\s+cup`,
				`who\s+won\s+the`,
				`\bcelebrit(y|ies)\b`,
				`\bmovies?\b`,
				`\brecipes?\b`,
				`capital\s+of\s+`,
				`\bhoroscopes?\b`,
				`latest\s+news`,
			),
		},
		{
			Category: CategoryBulkExtraction,
			Severity: SeverityHigh,
			Reason:   "Bulk export of personal or business data is not available through chat.",
			Patterns: compileAll(
				`(all|every)\s+(customers?|clients?|users?|employees?|leads?|contacts?)\b.*\b(emails?|e-mails?|phone|address|contact|nric|id)`,
				`(dump|export|extract)\s+(all|every|the\s+entire|the\s+whole)`,
				`(list|give\s+me|show\s+me)\s+all\s+.*\b(emails?|phone\s+numbers?|addresses|passwords?)`,
				`(credit\s+card|nric|passport|social\s+security)\s+numbers?`,
			),
			WidePatterns: compileAll(
				`(all|everything)\s+(the\s+)?(data|files|records|documents|contents?)`,
				`send\s+me\s+everything`,
				`every\s+single\s+(row|record|entry)`,
			),
		},
		{
			Category: CategorySystemManipulation,
			Severity: SeverityCritical,
			Reason:   "Operational or injection-style commands are rejected.",
			Patterns: compileAll(
				`drop\s+table`,
				`delete\s+from\s+\w+`,
				`truncate\s+table`,
				`insert\s+into\s+\w+`,
				`alter\s+table`,
				`union\s+select`,
				`;\s*--`,
				`\bexec(ute)?\s+(sp_|xp_|cmd)`,
				`rm\s+-rf`,
				`\bsudo\s+`,
				`<script\b`,
			),
		},
	}
}
