// Package storage provides the authoritative, durable key space for
// EngramAI Lite: a column-family-style key-value store (implemented over
// BadgerDB) with batched atomic writes. Column families are emulated as key
// prefixes since BadgerDB exposes a single flat keyspace; see Family.
package storage

import "fmt"

// Family names one of the eight column families in the key space.
type Family string

const (
	FamilyEngrams      Family = "engrams"
	FamilyConnections  Family = "connections"
	FamilyCollections  Family = "collections"
	FamilyAgents       Family = "agents"
	FamilyContexts     Family = "contexts"
	FamilyMetadata     Family = "metadata"
	FamilyRelationships Family = "relationships"
	FamilyEmbeddings   Family = "embeddings"
)

// AllFamilies lists every column family, used when opening the store and
// when computing per-family stats.
var AllFamilies = []Family{
	FamilyEngrams,
	FamilyConnections,
	FamilyCollections,
	FamilyAgents,
	FamilyContexts,
	FamilyMetadata,
	FamilyRelationships,
	FamilyEmbeddings,
}

// recordKey builds the "<family>:<type>:<id>" key for an authoritative
// record.
func recordKey(family Family, typ, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", family, typ, id))
}

// recordPrefix builds the "<family>:<type>:" prefix used to iterate every
// record of a given type within a family.
func recordPrefix(family Family, typ string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", family, typ))
}

// relationshipKey builds a relationships-family index row key, one of
// "out:<source>:<conn>", "in:<target>:<conn>", or "type:<relType>:<conn>".
func relationshipKey(view, value, connID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", FamilyRelationships, view, value, connID))
}

// relationshipPrefix builds the "<family>:<view>:<value>:" prefix used to
// iterate every relationship-index row for a given view and value.
func relationshipPrefix(view, value string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", FamilyRelationships, view, value))
}
