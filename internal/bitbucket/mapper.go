package bitbucket

// NormalizedActor is the acting user as far as the payload describes it
type NormalizedActor struct {
	Email       string
	DisplayName string
}

// NormalizedPushChange is one ref update with its branch name resolved
type NormalizedPushChange struct {
	Branch       string
	FromRevision string
	ToRevision   string
	ChangeType   string
}

// PushContext is the shared part of a push event
type PushContext struct {
	Actor       NormalizedActor
	ProjectName string
	RepoName    string
	Changes     []NormalizedPushChange
}

// NormalizedPullRequest is the flattened pull request of a pr:* event
type NormalizedPullRequest struct {
	Number       *int64
	Title        string
	SourceBranch string
	TargetBranch string
	ProjectName  string
	ProjectKey   string
	RepoName     string
	RepoSlug     string
	SelfLink     string
}

// NormalizeActor prefers displayName and falls back to name
func NormalizeActor(a *Actor) NormalizedActor {
	if a == nil {
		return NormalizedActor{}
	}
	name := a.DisplayName
	if name == "" {
		name = a.Name
	}
	return NormalizedActor{
		Email:       a.EmailAddress,
		DisplayName: name,
	}
}

// BranchName prefers ref.displayId and falls back to refId
func (c Change) BranchName() string {
	if c.Ref != nil && c.Ref.DisplayID != "" {
		return c.Ref.DisplayID
	}
	return c.RefID
}

// NormalizePush flattens a push event. A missing change list is empty.
func NormalizePush(e *PushEvent) PushContext {
	ctx := PushContext{
		Actor:       NormalizeActor(e.Actor),
		ProjectName: e.Repository.ProjectName(),
		Changes:     make([]NormalizedPushChange, 0, len(e.Changes)),
	}
	if e.Repository != nil {
		ctx.RepoName = e.Repository.Name
	}

	for _, c := range e.Changes {
		ctx.Changes = append(ctx.Changes, NormalizedPushChange{
			Branch:       c.BranchName(),
			FromRevision: c.FromHash,
			ToRevision:   c.ToHash,
			ChangeType:   c.Type,
		})
	}
	return ctx
}

// NormalizePullRequest flattens a pull request event. It reports false when
// the payload carries no pull request.
func NormalizePullRequest(e *PullRequestEvent) (NormalizedPullRequest, bool) {
	pr := e.PullRequest
	if pr == nil {
		return NormalizedPullRequest{}, false
	}

	n := NormalizedPullRequest{
		Number:   pr.ID,
		Title:    pr.Title,
		SelfLink: pr.Links.SelfHref(),
	}
	if pr.FromRef != nil {
		n.SourceBranch = pr.FromRef.DisplayID
		if repo := pr.FromRef.Repository; repo != nil {
			n.ProjectName = repo.ProjectName()
			n.ProjectKey = repo.ProjectKey()
			n.RepoName = repo.Name
			n.RepoSlug = repo.Slug
		}
	}
	if pr.ToRef != nil {
		n.TargetBranch = pr.ToRef.DisplayID
	}
	return n, true
}
