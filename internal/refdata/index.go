package refdata

import (
	"sort"

	"finsync/internal"
)

// Index holds one scope's cached reference entities grouped by kind.
// Candidate slices are kept in a stable order so cascade results are
// deterministic for a given cache state.
type Index struct {
	byKind map[internal.RefKind][]internal.ReferenceEntity
}

func BuildIndex(entities []internal.ReferenceEntity) *Index {
	idx := &Index{byKind: map[internal.RefKind][]internal.ReferenceEntity{}}
	for _, e := range entities {
		idx.byKind[e.Kind] = append(idx.byKind[e.Kind], e)
	}
	for kind := range idx.byKind {
		candidates := idx.byKind[kind]
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].DisplayName != candidates[j].DisplayName {
				return candidates[i].DisplayName < candidates[j].DisplayName
			}
			return candidates[i].ExternalID < candidates[j].ExternalID
		})
	}
	return idx
}

func (idx *Index) Candidates(kind internal.RefKind) []internal.ReferenceEntity {
	return idx.byKind[kind]
}
