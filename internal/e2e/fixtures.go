package e2e

import (
	"fmt"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

// Seeded returns an environment with two repos:
//
//	mnist/cnn      model line, 3 models with accuracy and loss
//	mnist/images   data line, versions "1" and "2"
//	cifar/resnet   model line, 1 model
func Seeded() *TestEnvironment {
	env := NewTestEnvironment()
	env.WorkspaceName = "lab"
	env.Repos = []*RepoFixture{
		{
			Name: "mnist",
			Tags: []string{"vision"},
			Lines: []*LineFixture{
				modelLine("cnn", []float64{0.91, 0.95, 0.97}),
				dataLine("images", "1", "2"),
			},
		},
		{
			Name:  "cifar",
			Lines: []*LineFixture{modelLine("resnet", []float64{0.88})},
		},
	}
	return env
}

func provenance(desc string) models.Traceable {
	commit := "3f2a1c9"
	return models.Traceable{
		User:          "alice",
		Host:          "gpu-01",
		Cwd:           "/home/alice/exp",
		PythonVersion: "3.11.6",
		Description:   desc,
		Tags:          []string{"baseline"},
		GitCommit:     &commit,
		CreatedAt:     "2024-05-01T10:00:00",
	}
}

func modelLine(name string, accuracy []float64) *LineFixture {
	up, down := models.DirectionUp, models.DirectionDown
	l := &LineFixture{
		Name:      name,
		Type:      models.LineTypeModel,
		CreatedAt: "2024-05-01T10:00:00",
		UpdatedAt: "2024-05-03T10:00:00",
		Configs:   map[int]models.RunConfig{},
		Logs:      map[int]string{},
	}
	for i, acc := range accuracy {
		loss := 1 - acc
		slug := fmt.Sprintf("%s-%d", name, i)
		saved := fmt.Sprintf("2024-05-0%dT12:00:00", i+1)

		l.Rows = append(l.Rows, models.ItemRow{
			"slug":       slug,
			"created_at": "2024-05-01T10:00:00",
			"saved_at":   saved,
			"accuracy":   acc,
			"loss":       loss,
			"lr":         0.001 * float64(i+1),
		})
		l.Models = append(l.Models, models.Model{
			Traceable: provenance(fmt.Sprintf("run %d", i)),
			Slug:      slug,
			Path:      fmt.Sprintf("/repos/%s/%05d", name, i),
			SavedAt:   saved,
			Params:    map[string]any{"lr": 0.001 * float64(i+1), "layers": []any{32.0, 64.0}},
			Metrics: []models.Metric{
				{Name: "accuracy", Value: &acc, Direction: &up},
				{Name: "loss", Value: &loss, Direction: &down},
			},
			Artifacts: []models.FileRef{{Name: "weights.pt", Size: "1.2 MB"}},
			Files:     []models.FileRef{{Name: "model.json", Size: "2 KB"}},
		})
		l.Configs[i] = models.RunConfig{
			Config:    map[string]any{"lr": 0.001 * float64(i+1)},
			Overrides: map[string]any{},
		}
		l.Logs[i] = fmt.Sprintf("epoch 1 acc=%.2f\n", acc)
	}
	return l
}

func dataLine(name string, versions ...string) *LineFixture {
	l := &LineFixture{
		Name:      name,
		Type:      models.LineTypeData,
		CreatedAt: "2024-04-01T09:00:00",
		UpdatedAt: "2024-04-02T09:00:00",
		Datasets:  map[string]models.Dataset{},
	}
	for _, ver := range versions {
		l.Rows = append(l.Rows, models.ItemRow{
			"slug":       name + "-" + ver,
			"created_at": "2024-04-01T09:00:00",
			"saved_at":   "2024-04-01T09:30:00",
			"tags":       []any{"v" + ver},
			"rows":       60000.0,
		})
		l.Datasets[ver] = models.Dataset{
			Traceable: provenance("dataset " + ver),
			Name:      name,
			Path:      "/repos/" + name + "/" + ver,
			SavedAt:   "2024-04-01T09:30:00",
		}
	}
	return l
}
