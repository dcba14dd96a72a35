package core

// FindingType separates leaked credentials from vulnerable dependencies.
type FindingType string

const (
	FindingSecret        FindingType = "secret"
	FindingVulnerability FindingType = "vulnerability"
)

// Severity of a security finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities from most (0) to least severe; unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// SecurityFinding is a single issue reported by the security gate.
type SecurityFinding struct {
	Type           FindingType `json:"type"`
	Severity       Severity    `json:"severity"`
	Title          string      `json:"title"`
	File           string      `json:"file"`
	Line           int         `json:"line,omitempty"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// FixType classifies the change a healing analysis proposes.
type FixType string

const (
	FixDependency  FixType = "dependency"
	FixConfig      FixType = "config"
	FixCode        FixType = "code"
	FixEnvironment FixType = "environment"
)

// SuggestedFix is the concrete change proposed for a failed build.
type SuggestedFix struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Change string `json:"change"`
	Before string `json:"before,omitempty"`
}

// HealingAnalysis is the AI's diagnosis of a failed build log.
type HealingAnalysis struct {
	RootCause    string       `json:"rootCause"`
	FixType      FixType      `json:"fixType"`
	Confidence   float64      `json:"confidence"`
	Explanation  string       `json:"explanation"`
	SuggestedFix SuggestedFix `json:"suggestedFix"`
}

// FileContent is a path plus its (possibly truncated) content, fed to the security scan.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
