package models

import (
	"encoding/json"
	"fmt"
)

// RepoCard is the short description of a repo listed in a workspace.
type RepoCard struct {
	Name string   `json:"name"`
	Len  int      `json:"len"`
	Tags []string `json:"tags"`
}

// RepoList is the repo listing of a workspace. It distinguishes a listing
// that was never loaded from one that was loaded and turned out empty.
// The zero value is not loaded.
type RepoList struct {
	loaded bool
	cards  []RepoCard
}

// NotLoadedRepos returns a listing that has not been fetched yet.
func NotLoadedRepos() RepoList {
	return RepoList{}
}

// LoadedRepos returns a loaded listing holding a copy of cards.
func LoadedRepos(cards []RepoCard) RepoList {
	return RepoList{loaded: true, cards: cloneRepoCards(cards)}
}

// Loaded reports whether the listing was fetched.
func (l RepoList) Loaded() bool {
	return l.loaded
}

// Cards returns a copy of the loaded cards. It returns nil when not loaded.
func (l RepoList) Cards() []RepoCard {
	if !l.loaded {
		return nil
	}
	out := cloneRepoCards(l.cards)
	if out == nil {
		out = []RepoCard{}
	}
	return out
}

// Len returns the number of loaded cards.
func (l RepoList) Len() int {
	return len(l.cards)
}

// MarshalJSON encodes a not-loaded listing as null.
func (l RepoList) MarshalJSON() ([]byte, error) {
	if !l.loaded {
		return []byte("null"), nil
	}
	return json.Marshal(l.Cards())
}

// UnmarshalJSON decodes null as not loaded and any array as loaded.
func (l *RepoList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = NotLoadedRepos()
		return nil
	}
	var cards []RepoCard
	if err := json.Unmarshal(data, &cards); err != nil {
		return fmt.Errorf("decoding repo list: %w", err)
	}
	*l = RepoList{loaded: true, cards: cards}
	if l.cards == nil {
		l.cards = []RepoCard{}
	}
	return nil
}

func cloneRepoCards(cards []RepoCard) []RepoCard {
	if cards == nil {
		return nil
	}
	out := make([]RepoCard, len(cards))
	for i, c := range cards {
		out[i] = RepoCard{Name: c.Name, Len: c.Len, Tags: cloneStrings(c.Tags)}
	}
	return out
}

// Workspace is the root of the hierarchy.
type Workspace struct {
	Name     string    `json:"name"`
	Len      int       `json:"len"`
	Repos    RepoList  `json:"repos"`
	Tags     []string  `json:"tags"`
	Comments []Comment `json:"comments"`
}

// NewWorkspace builds a workspace that shares no mutable state with raw.
func NewWorkspace(raw Workspace) *Workspace {
	ws := raw.Clone()
	return &ws
}

// Clone returns a deep copy of w.
func (w Workspace) Clone() Workspace {
	out := w
	if w.Repos.loaded {
		out.Repos = LoadedRepos(w.Repos.cards)
	}
	out.Tags = cloneStrings(w.Tags)
	out.Comments = cloneComments(w.Comments)
	return out
}
