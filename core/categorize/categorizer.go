// Package categorize assigns a category to commits that carry no explicit tag,
// combining message keywords, touched paths, diff hints and an optional
// external classifier.
package categorize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// Input is what the categorizer knows about one commit.
type Input struct {
	Message string
	Files   []string
	Diff    string
}

// InputFromCommit builds an Input from a fetched commit.
func InputFromCommit(c schema.CommitRecord) Input {
	return Input{Message: c.Message, Files: c.FilesChanged}
}

// Categorizer runs the staged strategy. It is safe for concurrent use.
type Categorizer struct {
	registry   *tags.Registry
	classifier Classifier
	logger     *zap.Logger
	workers    int
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithClassifier enables the external stage.
func WithClassifier(cl Classifier) Option {
	return func(c *Categorizer) { c.classifier = cl }
}

// WithLogger sets the logger used for swallowed external failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Categorizer) { c.logger = contract.OrNop(l) }
}

// WithWorkers bounds CategorizeBatch concurrency.
func WithWorkers(n int) Option {
	return func(c *Categorizer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Categorizer over the given registry.
func New(registry *tags.Registry, opts ...Option) *Categorizer {
	c := &Categorizer{
		registry: registry,
		logger:   zap.NewNop(),
		workers:  contract.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasClassifier reports whether the external stage is available.
func (c *Categorizer) HasClassifier() bool {
	return c.classifier != nil
}

// Registry returns the taxonomy the categorizer resolves against.
func (c *Categorizer) Registry() *tags.Registry {
	return c.registry
}

// Categorize returns exactly one result for the input. It never fails:
// external errors degrade to the next stage and finally to UNTAGGED.
func (c *Categorizer) Categorize(ctx context.Context, in Input, allowExternal bool) schema.CategorizationResult {
	if tag, conf := c.registry.ParseTag(in.Message); tag != "" {
		return schema.CategorizationResult{
			Tag:        tag,
			Confidence: conf,
			Method:     schema.MethodExplicit,
			Reasoning:  "Explicit tag found in message",
		}
	}

	keyword, hasKeyword := c.matchKeywords(in.Message)
	if hasKeyword && keyword.Confidence >= KeywordThreshold {
		return keyword
	}

	path, hasPath := c.matchFilePaths(in.Files)
	if hasPath && path.Confidence >= FilePathThreshold {
		return path
	}

	diff, hasDiff := c.matchDiff(in.Diff)
	if hasDiff && diff.Confidence >= DiffThreshold {
		return diff
	}

	var signals []schema.CategorizationResult
	if hasKeyword {
		signals = append(signals, keyword)
	}
	if hasPath {
		signals = append(signals, path)
	}
	if hasDiff {
		signals = append(signals, diff)
	}
	if combined, ok := combineSignals(signals); ok && combined.Confidence >= CombinedThreshold {
		return combined
	}

	if allowExternal && c.classifier != nil {
		if ext, ok := c.classifyExternal(ctx, in); ok {
			return ext
		}
	}

	return Fallback()
}

// Fallback is the result when every stage fails.
func Fallback() schema.CategorizationResult {
	return schema.CategorizationResult{
		Tag:        schema.UntaggedTag,
		Confidence: 0,
		Method:     schema.MethodFallback,
		Reasoning:  "No clear category detected",
	}
}

// CategorizeCommit tags a fetched commit using its message and files.
func (c *Categorizer) CategorizeCommit(ctx context.Context, commit schema.CommitRecord, allowExternal bool) schema.CategorizationResult {
	return c.Categorize(ctx, InputFromCommit(commit), allowExternal)
}

// CategorizeBatch categorizes inputs with a bounded worker pool.
// Results are returned in input order.
func (c *Categorizer) CategorizeBatch(ctx context.Context, inputs []Input, allowExternal bool) []schema.CategorizationResult {
	results := make([]schema.CategorizationResult, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	indexCh := make(chan int, len(inputs))
	var wg sync.WaitGroup
	for range min(c.workers, len(inputs)) {
		wg.Go(func() {
			for i := range indexCh {
				results[i] = c.Categorize(ctx, inputs[i], allowExternal)
			}
		})
	}
	for i := range inputs {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()
	return results
}

func (c *Categorizer) matchKeywords(message string) (schema.CategorizationResult, bool) {
	lower := strings.ToLower(message)
	bestTag := ""
	bestScore := 0
	var bestHits []string

	for _, rule := range keywordRules {
		if !c.registry.Has(rule.tag) {
			continue
		}
		score := 0
		var hits []string
		for _, re := range rule.patterns {
			if m := re.FindString(lower); m != "" {
				score++
				hits = append(hits, m)
			}
		}
		if score > bestScore {
			bestTag, bestScore, bestHits = rule.tag, score, hits
		}
	}
	if bestScore == 0 {
		return schema.CategorizationResult{}, false
	}

	if len(bestHits) > 2 {
		bestHits = bestHits[:2]
	}
	return schema.CategorizationResult{
		Tag:        bestTag,
		Confidence: min(0.6+0.15*float64(bestScore), maxConfidence),
		Method:     schema.MethodKeyword,
		Reasoning:  "Keywords matched: " + strings.Join(bestHits, ", "),
	}, true
}

func (c *Categorizer) matchFilePaths(files []string) (schema.CategorizationResult, bool) {
	if len(files) == 0 {
		return schema.CategorizationResult{}, false
	}

	bestTag := ""
	bestCount := 0
	for _, rule := range pathRules {
		if !c.registry.Has(rule.tag) {
			continue
		}
		count := 0
		for _, file := range files {
			for _, re := range rule.patterns {
				if re.MatchString(file) {
					count++
					break
				}
			}
		}
		if count > bestCount {
			bestTag, bestCount = rule.tag, count
		}
	}
	if bestCount == 0 {
		return schema.CategorizationResult{}, false
	}

	ratio := float64(bestCount) / float64(len(files))
	return schema.CategorizationResult{
		Tag:        bestTag,
		Confidence: min(0.7+0.25*ratio, maxConfidence),
		Method:     schema.MethodFilePath,
		Reasoning:  fmt.Sprintf("%d/%d files match pattern", bestCount, len(files)),
	}, true
}

func (c *Categorizer) matchDiff(diff string) (schema.CategorizationResult, bool) {
	if diff == "" {
		return schema.CategorizationResult{}, false
	}
	for _, rule := range diffRules {
		if c.registry.Has(rule.tag) && rule.match(diff) {
			return schema.CategorizationResult{
				Tag:        rule.tag,
				Confidence: diffConfidence,
				Method:     schema.MethodDiff,
				Reasoning:  "Diff pattern suggests this category",
			}, true
		}
	}
	return schema.CategorizationResult{}, false
}

// combineSignals averages per-tag confidence over all stages that produced a result
// and boosts it when more than one stage agrees on the winner.
func combineSignals(signals []schema.CategorizationResult) (schema.CategorizationResult, bool) {
	if len(signals) == 0 {
		return schema.CategorizationResult{}, false
	}

	votes := make(map[string]float64)
	var order []string
	for _, s := range signals {
		if _, seen := votes[s.Tag]; !seen {
			order = append(order, s.Tag)
		}
		votes[s.Tag] += s.Confidence
	}

	bestTag := order[0]
	for _, tag := range order[1:] {
		if votes[tag] > votes[bestTag] {
			bestTag = tag
		}
	}

	confidence := votes[bestTag] / float64(len(signals))
	var methods []string
	for _, s := range signals {
		if s.Tag == bestTag {
			methods = append(methods, string(s.Method))
		}
	}
	if len(methods) > 1 {
		confidence = min(confidence+agreementBoost, maxConfidence)
	}

	return schema.CategorizationResult{
		Tag:        bestTag,
		Confidence: confidence,
		Method:     schema.MethodCombined,
		Reasoning:  "Combined signals: " + strings.Join(methods, ", "),
	}, true
}
