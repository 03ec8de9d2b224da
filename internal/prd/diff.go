package prd

import (
	"fmt"
	"slices"
)

// Diff compares two documents node by node and returns the set of field
// paths that differ, in document order. Comparing the typed tree rather
// than raw text means comment or whitespace reformatting never registers
// as a change.
//
// Paths look like "project.name", "verification.commands[0].command",
// "features[2].status". When a list changes length the path of the list
// itself is reported ("features", "features[1].steps") rather than paths
// into elements that only exist on one side.
func Diff(before, after *Document) []string {
	var paths []string

	if before.Project.Name != after.Project.Name {
		paths = append(paths, "project.name")
	}
	if before.Project.Description != after.Project.Description {
		paths = append(paths, "project.description")
	}
	if before.Project.Repository != after.Project.Repository {
		paths = append(paths, "project.repository")
	}

	if len(before.Verification.Commands) != len(after.Verification.Commands) {
		paths = append(paths, "verification.commands")
	} else {
		for i := range before.Verification.Commands {
			b, a := before.Verification.Commands[i], after.Verification.Commands[i]
			prefix := fmt.Sprintf("verification.commands[%d]", i)
			if b.Name != a.Name {
				paths = append(paths, prefix+".name")
			}
			if b.Command != a.Command {
				paths = append(paths, prefix+".command")
			}
			if b.Description != a.Description {
				paths = append(paths, prefix+".description")
			}
		}
	}
	if before.Verification.RunAfterEachFeature != after.Verification.RunAfterEachFeature {
		paths = append(paths, "verification.runAfterEachFeature")
	}

	if len(before.Features) != len(after.Features) {
		paths = append(paths, "features")
	} else {
		for i := range before.Features {
			b, a := before.Features[i], after.Features[i]
			prefix := fmt.Sprintf("features[%d]", i)
			if b.ID != a.ID {
				paths = append(paths, prefix+".id")
			}
			if b.Category != a.Category {
				paths = append(paths, prefix+".category")
			}
			if b.Description != a.Description {
				paths = append(paths, prefix+".description")
			}
			if !slices.Equal(b.Steps, a.Steps) {
				paths = append(paths, prefix+".steps")
			}
			if b.Status != a.Status {
				paths = append(paths, prefix+".status")
			}
			if b.Notes != a.Notes {
				paths = append(paths, prefix+".notes")
			}
		}
	}

	if before.Completion.AllFeaturesComplete != after.Completion.AllFeaturesComplete {
		paths = append(paths, "completion.allFeaturesComplete")
	}
	if before.Completion.AllVerificationsPassing != after.Completion.AllVerificationsPassing {
		paths = append(paths, "completion.allVerificationsPassing")
	}
	if before.Completion.Marker != after.Completion.Marker {
		paths = append(paths, "completion.marker")
	}

	return paths
}
