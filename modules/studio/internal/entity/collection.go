package entity

// Collection is the style configuration shared by all ordinals generated for
// one project.
type Collection struct {
	Id   int64
	Name string

	// StylePrompt is prepended to every generation prompt.
	StylePrompt string
	// NegativePrompt lists things the model should avoid.
	NegativePrompt string
	// RotationTraitType is the trait type round-robined by ordinal number
	// instead of weighted random. Empty disables rotation.
	RotationTraitType string
}

// Trait is one selectable value of a trait type within a collection.
type Trait struct {
	Id           int64
	CollectionId int64
	TraitType    string
	Value        string
	Description  string
	RarityWeight float64

	// Ignored traits are excluded from random selection but remain
	// selectable through explicit overrides.
	Ignored bool
}
