package bitbucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeActor(t *testing.T) {
	tests := []struct {
		name     string
		actor    *Actor
		expected NormalizedActor
	}{
		{
			name:     "display name preferred",
			actor:    &Actor{Name: "jdoe", DisplayName: "John Doe", EmailAddress: "jdoe@example.com"},
			expected: NormalizedActor{Email: "jdoe@example.com", DisplayName: "John Doe"},
		},
		{
			name:     "falls back to name",
			actor:    &Actor{Name: "jdoe"},
			expected: NormalizedActor{DisplayName: "jdoe"},
		},
		{
			name:     "absent actor",
			actor:    nil,
			expected: NormalizedActor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeActor(tt.actor))
		})
	}
}

func TestChange_BranchName(t *testing.T) {
	assert.Equal(t, "feature/x", Change{Ref: &Ref{DisplayID: "feature/x"}, RefID: "refs/heads/feature/x"}.BranchName())
	assert.Equal(t, "refs/heads/main", Change{RefID: "refs/heads/main"}.BranchName())
	assert.Equal(t, "refs/heads/main", Change{Ref: &Ref{}, RefID: "refs/heads/main"}.BranchName())
}

func TestNormalizePush(t *testing.T) {
	event, err := ParseEvent(EventRefsChanged, []byte(pushPayload))
	require.NoError(t, err)

	push := NormalizePush(event.(*PushEvent))
	assert.Equal(t, "John Doe", push.Actor.DisplayName)
	assert.Equal(t, "Platform", push.ProjectName)
	assert.Equal(t, "api", push.RepoName)
	require.Len(t, push.Changes, 2)

	assert.Equal(t, NormalizedPushChange{
		Branch:       "feature/issue-12",
		FromRevision: "0123456789abcdef",
		ToRevision:   "fedcba9876543210",
		ChangeType:   "UPDATE",
	}, push.Changes[0])
	assert.Equal(t, "refs/heads/main", push.Changes[1].Branch)
}

func TestNormalizePush_NoChanges(t *testing.T) {
	push := NormalizePush(&PushEvent{})
	assert.NotNil(t, push.Changes)
	assert.Empty(t, push.Changes)
	assert.Empty(t, push.ProjectName)
	assert.Empty(t, push.RepoName)
}

func TestNormalizePullRequest(t *testing.T) {
	event, err := ParseEvent(EventPROpened, []byte(pullRequestPayload))
	require.NoError(t, err)

	pr, ok := NormalizePullRequest(event.(*PullRequestEvent))
	require.True(t, ok)
	require.NotNil(t, pr.Number)
	assert.Equal(t, int64(5), *pr.Number)
	assert.Equal(t, "Add login", pr.Title)
	assert.Equal(t, "feature/issue-77-x", pr.SourceBranch)
	assert.Equal(t, "main", pr.TargetBranch)
	assert.Equal(t, "Platform", pr.ProjectName)
	assert.Equal(t, "PLAT", pr.ProjectKey)
	assert.Equal(t, "api", pr.RepoSlug)
	assert.Equal(t, "https://git.example.com/projects/PLAT/repos/api/pull-requests/5", pr.SelfLink)
}

func TestNormalizePullRequest_Absent(t *testing.T) {
	_, ok := NormalizePullRequest(&PullRequestEvent{EventKey: EventPRMerged})
	assert.False(t, ok)
}
