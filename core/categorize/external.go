package categorize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

const (
	maxPromptFiles   = 10
	maxDiffSnippet   = 300
	noFilesSentinel  = "No files provided"
	responseSepCount = 3
)

// Classifier is an optional external categorization capability.
// It receives the rendered prompt and returns the raw text reply,
// expected as "TAG | confidence | reasoning".
type Classifier interface {
	Classify(ctx context.Context, prompt Prompt) (string, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, prompt Prompt) (string, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// Prompt carries what an external classifier may see about a commit.
type Prompt struct {
	Tags        []string
	Message     string
	Files       []string
	DiffSnippet string
}

// NewPrompt trims files and diff to the sizes an external classifier accepts.
func NewPrompt(tagNames []string, in Input) Prompt {
	files := in.Files
	if len(files) > maxPromptFiles {
		files = files[:maxPromptFiles]
	}
	diff := in.Diff
	if runes := []rune(diff); len(runes) > maxDiffSnippet {
		diff = string(runes[:maxDiffSnippet]) + "..."
	}
	return Prompt{
		Tags:        tagNames,
		Message:     in.Message,
		Files:       append([]string(nil), files...),
		DiffSnippet: diff,
	}
}

// String renders the instruction text sent to the classifier.
func (p Prompt) String() string {
	files := noFilesSentinel
	if len(p.Files) > 0 {
		files = strings.Join(p.Files, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Categorize this git commit into ONE of these tags:\n%s\n\n", strings.Join(p.Tags, ", "))
	fmt.Fprintf(&b, "Commit message: %s\n", p.Message)
	fmt.Fprintf(&b, "Files changed: %s\n", files)
	fmt.Fprintf(&b, "Diff snippet: %s\n\n", p.DiffSnippet)
	b.WriteString("Response format:\nTAG_NAME | confidence (0.0-1.0) | brief reasoning\n\n")
	b.WriteString("Example: FIX | 0.95 | Resolves null pointer exception in payment service\n")
	return b.String()
}

var errMalformedReply = errors.New("malformed classifier reply")

func (c *Categorizer) classifyExternal(ctx context.Context, in Input) (schema.CategorizationResult, bool) {
	prompt := NewPrompt(c.registry.Names(), in)
	reply, err := c.classifier.Classify(ctx, prompt)
	if err != nil {
		c.logger.Warn("external classifier failed", zap.Error(err))
		return schema.CategorizationResult{}, false
	}

	result, err := c.parseReply(reply)
	if err != nil {
		c.logger.Warn("external classifier reply rejected", zap.String("reply", reply), zap.Error(err))
		return schema.CategorizationResult{}, false
	}
	return result, true
}

// parseReply reads the first "TAG | confidence | reasoning" line of a reply.
// Tags outside the taxonomy are rejected.
func (c *Categorizer) parseReply(reply string) (schema.CategorizationResult, error) {
	var line string
	for candidate := range strings.SplitSeq(reply, "\n") {
		if strings.Count(candidate, "|") >= responseSepCount-1 {
			line = candidate
			break
		}
	}
	if line == "" {
		return schema.CategorizationResult{}, errMalformedReply
	}

	parts := strings.SplitN(line, "|", responseSepCount)
	tag := strings.ToUpper(strings.Trim(strings.TrimSpace(parts[0]), "[]*` "))
	if !c.registry.Has(tag) {
		return schema.CategorizationResult{}, fmt.Errorf("tag %q is not in the taxonomy", tag)
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return schema.CategorizationResult{}, fmt.Errorf("%w: confidence: %v", errMalformedReply, err)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return schema.CategorizationResult{}, fmt.Errorf("%w: confidence %v out of range", errMalformedReply, confidence)
	}

	return schema.CategorizationResult{
		Tag:        tag,
		Confidence: confidence,
		Method:     schema.MethodExternal,
		Reasoning:  strings.TrimSpace(parts[2]),
	}, nil
}
