package entity

// Ordinal is a generated artifact eligible for inscription. The payload bytes
// live in the blob store under ArtifactKey.
type Ordinal struct {
	Id            int64
	CollectionId  int64
	OrdinalNumber int64
	ContentType   string
	ArtifactKey   string
	PayloadSize   int64
}
