package signature

// FindUnique returns the offset of the only position in buf where sig
// matches. A second match is a configuration defect and fails with an
// *AmbiguousError rather than resolving to the first hit.
func FindUnique(buf []byte, sig Signature) (int, error) {
	if err := sig.Validate(); err != nil {
		return 0, err
	}

	candidate := -1
	for i := 0; i <= len(buf)-len(sig.Pattern); i++ {
		if !sig.MatchAt(buf, i) {
			continue
		}
		if candidate >= 0 {
			return 0, &AmbiguousError{First: candidate, Second: i}
		}
		candidate = i
	}

	if candidate < 0 {
		return 0, ErrNotFound
	}
	return candidate, nil
}

// FindAll returns every offset in buf where sig matches.
func FindAll(buf []byte, sig Signature) []int {
	if sig.Validate() != nil {
		return nil
	}

	var matches []int
	for i := 0; i <= len(buf)-len(sig.Pattern); i++ {
		if sig.MatchAt(buf, i) {
			matches = append(matches, i)
		}
	}
	return matches
}
