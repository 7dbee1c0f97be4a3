package bitbucket

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/atlet99/git-activity-hook/internal/config"
)

var browseSuffix = regexp.MustCompile(`/browse/?$`)

// URLBuilder handles URL construction for Bitbucket entities
type URLBuilder struct {
	baseURL string
}

// NewURLBuilder creates a new URL builder
func NewURLBuilder(cfg *config.Config) *URLBuilder {
	base := config.DefaultGitBaseURL
	if cfg != nil && cfg.GitBaseURL != "" {
		base = cfg.GitBaseURL
	}
	return &URLBuilder{
		baseURL: strings.TrimSuffix(base, "/"),
	}
}

// BaseURL returns the configured fallback root
func (b *URLBuilder) BaseURL() string {
	return b.baseURL
}

// ConstructCommitURL constructs the URL of a revision in a repository.
// The repository self link wins; the configured base URL is the fallback.
func (b *URLBuilder) ConstructCommitURL(repo *Repository, revision string) string {
	if revision == "" {
		return ""
	}

	if repo != nil {
		if href := repo.Links.SelfHref(); href != "" {
			return browseSuffix.ReplaceAllString(href, "") + "/commits/" + revision
		}
	}

	projectKey := repo.ProjectKey()
	if projectKey == "" || repo.Slug == "" {
		return ""
	}

	return fmt.Sprintf("%s/projects/%s/repos/%s/commits/%s",
		b.baseURL, url.PathEscape(projectKey), url.PathEscape(repo.Slug), revision)
}

// ConstructPullRequestURL constructs the overview URL of a pull request.
// The pull request self link is used verbatim when present.
func (b *URLBuilder) ConstructPullRequestURL(pr *PullRequest) string {
	if pr == nil || pr.ID == nil {
		return ""
	}

	if href := pr.Links.SelfHref(); href != "" {
		return href
	}

	var repo *Repository
	if pr.FromRef != nil {
		repo = pr.FromRef.Repository
	}
	projectKey := repo.ProjectKey()
	if projectKey == "" || repo.Slug == "" {
		return ""
	}

	return fmt.Sprintf("%s/projects/%s/repos/%s/pull-requests/%d/overview",
		b.baseURL, url.PathEscape(projectKey), url.PathEscape(repo.Slug), *pr.ID)
}
