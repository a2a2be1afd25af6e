package categorize

import (
	"regexp"
	"strings"
)

// Stage thresholds: a stage returns early once its confidence reaches these.
const (
	KeywordThreshold  = 0.7
	FilePathThreshold = 0.8
	DiffThreshold     = 0.75
	CombinedThreshold = 0.65

	maxConfidence  = 0.95
	diffConfidence = 0.75
	agreementBoost = 0.15
)

type keywordRule struct {
	tag      string
	patterns []*regexp.Regexp
}

type pathRule struct {
	tag      string
	patterns []*regexp.Regexp
}

type diffRule struct {
	tag   string
	match func(diff string) bool
}

func mustCompileAll(flags string, exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(flags+expr))
	}
	return out
}

// keywordRules is ordered; ties go to the earlier tag.
var keywordRules = []keywordRule{
	{"FIX", mustCompileAll("(?i)",
		`\b(fix|bug|crash|error|resolve|patch|hotfix)\b`,
		`\b(null\s+pointer|memory\s+leak|race\s+condition)\b`,
		`\b(broken|failing|failed)\b`,
	)},
	{"FEAT", mustCompileAll("(?i)",
		`\b(add|implement|create|new|feature)\b`,
		`\b(introduce|support\s+for)\b`,
	)},
	{"REFACTOR", mustCompileAll("(?i)",
		`\b(refactor|reorganize|restructure|simplify|cleanup|clean\s+up)\b`,
		`\b(improve\s+code|code\s+quality)\b`,
	)},
	{"DOC", mustCompileAll("(?i)",
		`\b(doc|documentation|readme|comment|javadoc)\b`,
		`\b(update\s+docs|add\s+docs)\b`,
	)},
	{"TEST", mustCompileAll("(?i)",
		`\b(test|spec|coverage|unit\s+test|integration\s+test)\b`,
	)},
	{"CONFIG", mustCompileAll("(?i)",
		`\b(config|configuration|env|environment|settings)\b`,
		`\b(webpack|babel|eslint|prettierrc)\b`,
	)},
	{"I18N", mustCompileAll("(?i)",
		`\b(translation|locale|i18n|internationalization)\b`,
		`\b(language\s+file|localization)\b`,
	)},
	{"PERF", mustCompileAll("(?i)",
		`\b(performance|optimize|optimization|speed|cache|caching)\b`,
		`\b(faster|improve\s+performance)\b`,
	)},
	{"SECURITY", mustCompileAll("(?i)",
		`\b(security|vulnerability|xss|csrf|sql\s+injection)\b`,
		`\b(auth|authentication|authorization|permission)\b`,
		`\b(sanitize|escape|validate\s+input)\b`,
	)},
	{"CHORE", mustCompileAll("(?i)",
		`\b(chore|maintenance|housekeeping|dependencies|deps)\b`,
		`\b(update\s+packages|bump\s+version)\b`,
	)},
	{"DEPLOY", mustCompileAll("(?i)",
		`\b(deploy|deployment|release|publish)\b`,
		`\b(production|staging)\b`,
	)},
	{"WIP", mustCompileAll("(?i)",
		`\bWIP\b`,
		`\b(work\s+in\s+progress|incomplete|ongoing)\b`,
	)},
	{"REVERT", mustCompileAll("(?i)",
		`\b(revert|rollback|undo)\b`,
	)},
}

// pathRules match file paths case-sensitively.
var pathRules = []pathRule{
	{"TEST", mustCompileAll("", `tests?/`, `spec/`, `\.test\.(js|ts|py)$`, `\.spec\.(js|ts)$`)},
	{"DOC", mustCompileAll("", `docs?/`, `README`, `\.md$`, `CHANGELOG`)},
	{"CONFIG", mustCompileAll("", `config/`, `\.env`, `webpack\.config`, `\.yml$`, `\.yaml$`)},
	{"I18N", mustCompileAll("", `lang/`, `locale/`, `translations?/`, `i18n/`)},
	{"DEPLOY", mustCompileAll("", `deploy/`, `\.github/workflows/`, `Dockerfile`, `docker-compose`)},
}

var diffRules = []diffRule{
	{"REFACTOR", func(diff string) bool {
		return strings.Contains(diff, "class") && strings.Contains(diff, "def") && strings.Count(diff, "\n") > 50
	}},
	{"PERF", func(diff string) bool {
		lower := strings.ToLower(diff)
		return strings.Contains(lower, "cache") || strings.Contains(lower, "optimize")
	}},
	{"SECURITY", func(diff string) bool {
		return strings.Contains(diff, "password") || strings.Contains(diff, "token") || strings.Contains(diff, "secret")
	}},
}
