package matcher

// Confidence is the certainty tier of a pairing between a source and a target record
type Confidence string

const (
	// ConfidenceExact means both records share an explicit identifier
	ConfidenceExact Confidence = "EXACT"
	// ConfidenceNormalized means folded names and normalized streets agree
	ConfidenceNormalized Confidence = "NORMALIZED"
	// ConfidenceNone means no unique target was found
	ConfidenceNone Confidence = "NONE"
)

// KeyFuncs extracts comparison keys from both sides of a match.
//
// Exact extractors may return several keys, tried in order; an empty key never matches.
// Keys from both sides are compared verbatim, so callers namespace them (e.g. "id:", "name:").
type KeyFuncs[S, T any] struct {
	SourceExact      func(S) []string
	TargetExact      func(T) []string
	SourceNormalized func(S) string
	TargetNormalized func(T) string
}

// Result is the outcome of matching one source record
type Result[S, T any] struct {
	Source     S
	Target     *T
	Confidence Confidence
	// Candidates lists the competing targets when the match was ambiguous
	Candidates []T
}

// Matched reports whether a unique target was found
func (r Result[S, T]) Matched() bool {
	return r.Confidence != ConfidenceNone && r.Target != nil
}

// Ambiguous reports whether more than one target qualified
func (r Result[S, T]) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// Stats summarizes a batch of match results
type Stats struct {
	Exact      int `json:"exact"`
	Normalized int `json:"normalized"`
	Unmatched  int `json:"unmatched"`
	Ambiguous  int `json:"ambiguous"`
}

// Matched returns the number of paired source records
func (s Stats) Matched() int {
	return s.Exact + s.Normalized
}

// Match pairs every source record with at most one target record.
//
// Exact keys are tried first, then the normalized key. A key shared by more than
// one target is never resolved by picking one: the result is NONE with the
// candidates attached. Output order follows the source order and target
// candidates follow the target order, so identical inputs give identical output.
func Match[S, T any](sources []S, targets []T, keys KeyFuncs[S, T]) []Result[S, T] {
	exactIndex := make(map[string][]int)
	normalizedIndex := make(map[string][]int)

	for i, target := range targets {
		if keys.TargetExact != nil {
			seen := make(map[string]bool)
			for _, key := range keys.TargetExact(target) {
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				exactIndex[key] = append(exactIndex[key], i)
			}
		}
		if keys.TargetNormalized != nil {
			if key := keys.TargetNormalized(target); key != "" {
				normalizedIndex[key] = append(normalizedIndex[key], i)
			}
		}
	}

	results := make([]Result[S, T], 0, len(sources))
	for _, source := range sources {
		results = append(results, matchOne(source, targets, keys, exactIndex, normalizedIndex))
	}

	return results
}

func matchOne[S, T any](
	source S,
	targets []T,
	keys KeyFuncs[S, T],
	exactIndex map[string][]int,
	normalizedIndex map[string][]int,
) Result[S, T] {
	if keys.SourceExact != nil {
		for _, key := range keys.SourceExact(source) {
			if key == "" {
				continue
			}
			hits := exactIndex[key]
			switch {
			case len(hits) == 1:
				target := targets[hits[0]]
				return Result[S, T]{Source: source, Target: &target, Confidence: ConfidenceExact}
			case len(hits) > 1:
				return ambiguous(source, targets, hits)
			}
		}
	}

	if keys.SourceNormalized != nil {
		if key := keys.SourceNormalized(source); key != "" {
			hits := normalizedIndex[key]
			switch {
			case len(hits) == 1:
				target := targets[hits[0]]
				return Result[S, T]{Source: source, Target: &target, Confidence: ConfidenceNormalized}
			case len(hits) > 1:
				return ambiguous(source, targets, hits)
			}
		}
	}

	return Result[S, T]{Source: source, Confidence: ConfidenceNone}
}

func ambiguous[S, T any](source S, targets []T, hits []int) Result[S, T] {
	candidates := make([]T, 0, len(hits))
	for _, i := range hits {
		candidates = append(candidates, targets[i])
	}
	return Result[S, T]{Source: source, Confidence: ConfidenceNone, Candidates: candidates}
}

// Summarize counts results per confidence tier
func Summarize[S, T any](results []Result[S, T]) Stats {
	var stats Stats
	for _, r := range results {
		switch {
		case r.Confidence == ConfidenceExact:
			stats.Exact++
		case r.Confidence == ConfidenceNormalized:
			stats.Normalized++
		case r.Ambiguous():
			stats.Ambiguous++
		default:
			stats.Unmatched++
		}
	}
	return stats
}
