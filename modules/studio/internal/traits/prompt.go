package traits

import (
	"sort"
	"strings"

	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
)

// BuildPrompt composes the generation prompt from the collection style and
// the assigned trait descriptions, in trait type order for stability.
func BuildPrompt(collection entity.Collection, assignment Assignment) string {
	parts := make([]string, 0, len(assignment)+1)
	if collection.StylePrompt != "" {
		parts = append(parts, collection.StylePrompt)
	}

	traitTypes := make([]string, 0, len(assignment))
	for traitType := range assignment {
		traitTypes = append(traitTypes, traitType)
	}
	sort.Strings(traitTypes)
	for _, traitType := range traitTypes {
		trait := assignment[traitType]
		description := trait.Description
		if description == "" {
			description = trait.Value
		}
		parts = append(parts, description)
	}
	return strings.Join(parts, ", ")
}
