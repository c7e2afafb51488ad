package extract

import (
	"regexp"
	"strings"
)

// tabularPattern parses one report line of the form
//
//	Name : value unit (reference range) [method]
//
// where the range and method segments are optional.
var tabularPattern = regexp.MustCompile(
	`^(?P<name>[A-Za-z0-9()\.'°\s\-/]+?)\s*[:|]\s*(?P<value>\d+(?:\.\d+)?)\s*(?P<unit>[A-Za-z/%]+)?` +
		`(?:\s*\((?P<range>[^)]+)\))?(?:\s*\[(?P<method>[^\]]+)\])?\s*$`,
)

// TabularStrategy handles vendor reports that lay out one parameter per line
// with a colon or pipe separator. Lines that carry a recognizable name label
// but no parseable value count as dropped candidates.
type TabularStrategy struct{}

// NewTabularStrategy creates the line-oriented extraction strategy.
func NewTabularStrategy() *TabularStrategy {
	return &TabularStrategy{}
}

func (s *TabularStrategy) Name() string {
	return "tabular"
}

func (s *TabularStrategy) Extract(text string) (Result, error) {
	var res Result
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := tabularPattern.FindStringSubmatch(line)
		if match == nil {
			// A separator without a parseable value means the line carried a
			// label we recognized but no usable result.
			if strings.ContainsAny(line, ":|") {
				res.Dropped++
			}
			continue
		}

		// The line structure already vouches for the label, so single-word
		// names like "hemoglobin" are fine here; only bare range adjectives
		// are rejected.
		name := CleanName(match[1])
		if name == "" || isGenericOnly(name) {
			res.Dropped++
			continue
		}

		key := normalizeKey(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		res.Candidates = append(res.Candidates, Candidate{
			Name:           name,
			Value:          match[2],
			Unit:           match[3],
			ReferenceRange: strings.TrimSpace(match[4]),
			Method:         strings.TrimSpace(match[5]),
		})
	}

	return res, nil
}
