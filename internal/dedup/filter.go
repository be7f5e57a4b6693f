package dedup

// Entry is the identity of a known or candidate company.
type Entry struct {
	Name  string
	TaxID string
}

// Candidate is implemented by anything that can be deduplicated.
type Candidate interface {
	DedupEntry() Entry
}

// IsDuplicate reports whether candidate matches any entry in existing. A
// tax id match is authoritative; otherwise names are compared fuzzily.
// Empty tax ids never match.
func IsDuplicate(candidate Entry, existing []Entry, threshold float64) bool {
	taxID := NormalizeTaxID(candidate.TaxID)
	if taxID != "" {
		for _, e := range existing {
			if NormalizeTaxID(e.TaxID) == taxID {
				return true
			}
		}
	}

	if Normalize(candidate.Name) == "" {
		return false
	}
	for _, e := range existing {
		if AreSimilar(candidate.Name, e.Name, threshold) {
			return true
		}
	}
	return false
}

// FilterDuplicates returns the candidates that duplicate neither an entry in
// references nor a candidate accepted earlier in the same call. Input order
// is preserved and the first occurrence wins.
func FilterDuplicates[T Candidate](candidates []T, threshold float64, references ...[]Entry) []T {
	size := 0
	for _, ref := range references {
		size += len(ref)
	}
	known := make([]Entry, 0, size+len(candidates))
	for _, ref := range references {
		known = append(known, ref...)
	}

	kept := make([]T, 0, len(candidates))
	for _, c := range candidates {
		entry := c.DedupEntry()
		if IsDuplicate(entry, known, threshold) {
			continue
		}
		kept = append(kept, c)
		known = append(known, entry)
	}
	return kept
}

// Entries converts candidates to plain entries, for use as references.
func Entries[T Candidate](items []T) []Entry {
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = it.DedupEntry()
	}
	return out
}
