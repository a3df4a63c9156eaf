package browser

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
)

// treeConcurrency bounds the repo loads LoadTree runs at once.
const treeConcurrency = 4

// Tree is a workspace together with every repo it lists.
type Tree struct {
	Workspace *models.Workspace `json:"workspace"`
	// Repos follows the order of the workspace's repo cards. It is nil
	// when the workspace did not include its repo list.
	Repos []*models.Repo `json:"repos"`
}

// LoadTree loads the workspace and then all of its repos concurrently.
// The first failing repo load cancels the rest and is returned.
func (b *Browser) LoadTree(ctx context.Context) (*Tree, error) {
	ws, err := b.LoadWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	tree := &Tree{Workspace: ws}
	if !ws.Repos.Loaded() {
		return tree, nil
	}

	cards := ws.Repos.Cards()
	repos := make([]*models.Repo, len(cards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(treeConcurrency)
	for i, card := range cards {
		g.Go(func() error {
			r, err := b.LoadRepo(gctx, pathspec.RepoSpec(card.Name))
			if err != nil {
				return err
			}
			repos[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree.Repos = repos
	return tree, nil
}
