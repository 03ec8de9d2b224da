package prd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *Document {
	return &Document{
		Project: Project{Name: "demo", Description: "demo project"},
		Verification: Verification{
			Commands: []VerifyCommand{
				{Name: "test", Command: "go test ./..."},
			},
			RunAfterEachFeature: true,
		},
		Features: []Feature{
			{ID: "feat-1", Category: CategoryFunctional, Description: "first", Steps: []string{"a", "b"}, Status: StatusPending},
			{ID: "feat-2", Category: CategoryBugfix, Description: "second", Status: StatusPending},
		},
		Completion: Completion{
			AllFeaturesComplete:     true,
			AllVerificationsPassing: true,
			Marker:                  "ALL FEATURES COMPLETE",
		},
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusComplete, StatusBlocked} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("done")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusBlocked.Terminal())
}

func TestParseCategory(t *testing.T) {
	for _, c := range []Category{CategoryFunctional, CategoryBugfix, CategoryRefactor, CategoryTest, CategoryDocs} {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCategory("chore")
	assert.Error(t, err)
}

func TestStatusCounts(t *testing.T) {
	doc := sampleDoc()
	doc.Features[0].Status = StatusComplete

	counts := doc.StatusCounts()
	assert.Equal(t, 1, counts.Complete)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 0, counts.InProgress)
	assert.Equal(t, 0, counts.Blocked)
}

func TestAllComplete(t *testing.T) {
	doc := sampleDoc()
	assert.False(t, doc.AllComplete())

	doc.Features[0].Status = StatusComplete
	doc.Features[1].Status = StatusComplete
	assert.True(t, doc.AllComplete())

	// Blocked features never count as complete.
	doc.Features[1].Status = StatusBlocked
	assert.False(t, doc.AllComplete())

	// An empty document is not complete.
	empty := &Document{Project: Project{Name: "empty"}}
	assert.False(t, empty.AllComplete())
}

func TestFeatureLookup(t *testing.T) {
	doc := sampleDoc()
	f := doc.Feature("feat-2")
	require.NotNil(t, f)
	assert.Equal(t, "second", f.Description)
	assert.Nil(t, doc.Feature("missing"))
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDoc()
	clone := doc.Clone()

	clone.Features[0].Status = StatusComplete
	clone.Features[0].Steps[0] = "mutated"
	clone.Verification.Commands[0].Command = "mutated"

	assert.Equal(t, StatusPending, doc.Features[0].Status)
	assert.Equal(t, "a", doc.Features[0].Steps[0])
	assert.Equal(t, "go test ./...", doc.Verification.Commands[0].Command)
}

func TestValidate(t *testing.T) {
	doc := sampleDoc()
	require.NoError(t, doc.Validate())

	noName := sampleDoc()
	noName.Project.Name = ""
	assert.Error(t, noName.Validate())

	emptyID := sampleDoc()
	emptyID.Features[1].ID = ""
	assert.Error(t, emptyID.Validate())

	dup := sampleDoc()
	dup.Features[1].ID = "feat-1"
	assert.Error(t, dup.Validate())
}
