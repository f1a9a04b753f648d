package traits

import (
	"math/rand"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
)

// Assignment maps a trait type to the trait chosen for it.
type Assignment map[string]entity.Trait

// Resolve picks one trait per trait type from the collection's pool.
// Explicit overrides win and may select ignored traits. The rotation trait
// type is round-robined by rotationIndex (callers pass ordinalNumber) so
// consecutive ordinals cycle through it deterministically. Everything else
// is weighted random by rarity weight, with ignored traits excluded.
func Resolve(pool []entity.Trait, overrides map[string]string, rotationType string, rotationIndex int64, rng *rand.Rand) (Assignment, error) {
	if len(pool) == 0 {
		return nil, errors.Wrap(errs.NotFound, "collection has no traits")
	}

	byType := make(map[string][]entity.Trait)
	for _, trait := range pool {
		byType[trait.TraitType] = append(byType[trait.TraitType], trait)
	}
	for _, traitList := range byType {
		sort.Slice(traitList, func(i, j int) bool { return traitList[i].Id < traitList[j].Id })
	}

	assignment := make(Assignment, len(byType))
	for traitType, traitList := range byType {
		if override, ok := overrides[traitType]; ok {
			trait, found := findByValue(traitList, override)
			if !found {
				return nil, errors.Wrapf(errs.NotFound, "trait %q has no value %q", traitType, override)
			}
			assignment[traitType] = trait
			continue
		}

		selectable := selectableTraits(traitList)
		if len(selectable) == 0 {
			return nil, errors.Wrapf(errs.NotFound, "trait %q has no selectable values", traitType)
		}
		if traitType == rotationType {
			assignment[traitType] = selectable[int(rotationIndex%int64(len(selectable)))]
			continue
		}
		assignment[traitType] = weightedRandom(selectable, rng)
	}
	for traitType := range overrides {
		if _, ok := byType[traitType]; !ok {
			return nil, errors.Wrapf(errs.NotFound, "collection has no trait type %q", traitType)
		}
	}
	return assignment, nil
}

func findByValue(traitList []entity.Trait, value string) (entity.Trait, bool) {
	for _, trait := range traitList {
		if trait.Value == value {
			return trait, true
		}
	}
	return entity.Trait{}, false
}

func selectableTraits(traitList []entity.Trait) []entity.Trait {
	selectable := make([]entity.Trait, 0, len(traitList))
	for _, trait := range traitList {
		if trait.Ignored || trait.RarityWeight <= 0 {
			continue
		}
		selectable = append(selectable, trait)
	}
	return selectable
}

func weightedRandom(traitList []entity.Trait, rng *rand.Rand) entity.Trait {
	var totalWeight float64
	for _, trait := range traitList {
		totalWeight += trait.RarityWeight
	}
	target := rng.Float64() * totalWeight
	for _, trait := range traitList {
		target -= trait.RarityWeight
		if target < 0 {
			return trait
		}
	}
	// float rounding can leave target at exactly zero
	return traitList[len(traitList)-1]
}
