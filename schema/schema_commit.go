package schema

import (
	"strings"
	"time"
)

// CommitRecord is one commit fetched from a repository.
type CommitRecord struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	Date         time.Time `json:"date"`
	Repository   string    `json:"repository"`
	FilesChanged []string  `json:"files_changed"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
}

// TotalChanges returns additions plus deletions.
func (c CommitRecord) TotalChanges() int {
	return c.Additions + c.Deletions
}

// NetLines returns additions minus deletions.
func (c CommitRecord) NetLines() int {
	return c.Additions - c.Deletions
}

// Subject returns the first line of the commit message.
func (c CommitRecord) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// Key namespaces the SHA with the repository so it is globally unique.
func (c CommitRecord) Key() string {
	return c.Repository + "@" + c.SHA
}

// CategorizationResult is the outcome of classifying one commit.
type CategorizationResult struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	Reasoning  string  `json:"reasoning"`
}

// IsFallback reports whether no strategy produced a category.
func (r CategorizationResult) IsFallback() bool {
	return r.Tag == UntaggedTag
}

// ShortRepoName returns the part of "owner/name" after the slash.
func ShortRepoName(repo string) string {
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		return repo[i+1:]
	}
	return repo
}
