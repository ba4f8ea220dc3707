package definition

import (
	"os"
	"path/filepath"
	"testing"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/prerequisite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDefinitionBuilds(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	graph, registry, err := f.Build(prerequisite.DefaultCatalog(), prerequisite.Dependencies{})
	require.NoError(t, err)

	legal, err := graph.IsLegalEdge(domain.StageOfferSent, domain.StageOfferSent)
	require.NoError(t, err)
	assert.True(t, legal)

	legal, err = graph.IsLegalEdge(domain.StageLead, domain.StageContractSigned)
	require.NoError(t, err)
	assert.False(t, legal)

	assert.Equal(t, []string{prerequisite.CheckOfferSentMessage}, registry.IDsFor(domain.StageOfferSent))
	assert.Equal(t, []string{prerequisite.CheckContactComplete}, registry.IDsFor(domain.StageContractSigned))

	edge, ok := graph.Edge(domain.StageNegotiation, domain.StageContractSigned)
	require.True(t, ok)
	assert.Equal(t, []string{prerequisite.CheckContactComplete}, edge.Prerequisites)

	assert.Equal(t, []string{
		domain.StageLead, domain.StageNeedsAnalysis, domain.StageOfferSent, domain.StageNegotiation,
	}, graph.ActiveStages())
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.toml")
	content := `
[[stages]]
name = "new"
category = "active"

[[stages]]
name = "won"
category = "terminal-won"

[[transitions]]
from = "new"
to = ["won"]

[prerequisites]
won = ["contact_complete", "phone_valid"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, err := Load(path)
	require.NoError(t, err)

	graph, registry, err := f.Build(prerequisite.DefaultCatalog(), prerequisite.Dependencies{PhoneRegion: "NL"})
	require.NoError(t, err)
	assert.True(t, graph.HasStage("won"))
	assert.Equal(t, []string{prerequisite.CheckContactComplete, prerequisite.CheckPhoneValid}, registry.IDsFor("won"))
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("pipeline.json")
	assert.Error(t, err)
}

func TestEmptyPathLoadsDefault(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Len(t, f.Stages, 6)
}

func TestBuildRejectsUnknownCheck(t *testing.T) {
	f := File{
		Stages:        []StageSpec{{Name: "a", Category: "active"}},
		Prerequisites: map[string][]string{"a": {"credit_check"}},
	}
	_, _, err := f.Build(prerequisite.DefaultCatalog(), prerequisite.Dependencies{})
	assert.True(t, domain.IsConfigurationError(err))
}

func TestBuildRejectsPrerequisitesForUnknownStage(t *testing.T) {
	f := File{
		Stages:        []StageSpec{{Name: "a", Category: "active"}},
		Prerequisites: map[string][]string{"b": {"contact_complete"}},
	}
	_, _, err := f.Build(prerequisite.DefaultCatalog(), prerequisite.Dependencies{})
	assert.True(t, domain.IsConfigurationError(err))
}

func TestBuildRejectsDanglingTransition(t *testing.T) {
	f := File{
		Stages:      []StageSpec{{Name: "a", Category: "active"}},
		Transitions: []TransitionSpec{{From: "a", To: []string{"missing"}}},
	}
	_, _, err := f.Build(prerequisite.DefaultCatalog(), prerequisite.Dependencies{})
	assert.True(t, domain.IsConfigurationError(err))
}
