package model

import "strings"

// SyncPayload is the push-event shaped body sent to the cluster reconciler. Only the fields
// the reconciler reads are present; commits carries a single entry with empty file lists.
type SyncPayload struct {
	Ref        string         `json:"ref"`
	Before     string         `json:"before"`
	After      string         `json:"after"`
	Commits    []SyncCommit   `json:"commits"`
	Repository SyncRepository `json:"repository"`
}

// SyncCommit lists the files touched by a commit
type SyncCommit struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// SyncRepository identifies the repository the reconciler should refresh
type SyncRepository struct {
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// NewSyncPayload builds the payload for repository served under baseURL (e.g. "http://git.example")
func NewSyncPayload(baseURL, repository string) *SyncPayload {
	return &SyncPayload{
		Ref:    "refs/heads/" + DefaultBranch,
		Before: ZeroObject,
		After:  ZeroObject,
		Commits: []SyncCommit{
			{Added: []string{}, Modified: []string{}, Removed: []string{}},
		},
		Repository: SyncRepository{
			HTMLURL:       strings.TrimSuffix(baseURL, "/") + "/" + repository,
			DefaultBranch: DefaultBranch,
		},
	}
}
