package extract

import (
	"regexp"
)

// genericPattern captures "name value unit" runs in free-flowing report text,
// tolerating a colon or dash between name and value.
var genericPattern = regexp.MustCompile(
	`(?i)(?P<name>[A-Za-z0-9()\.'°\s\-/]+?)\s*[:\-]?\s*(?P<value>\d+(?:\.\d+)?)\s*(?P<unit>[A-Za-z/%]+)`,
)

// GenericStrategy scans unstructured report text for parameter/value/unit
// runs. It is the default when a document carries no vendor format metadata.
type GenericStrategy struct{}

// NewGenericStrategy creates the default free-text extraction strategy.
func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{}
}

func (s *GenericStrategy) Name() string {
	return "generic"
}

func (s *GenericStrategy) Extract(text string) (Result, error) {
	var res Result
	seen := make(map[string]struct{})

	for _, match := range genericPattern.FindAllStringSubmatch(text, -1) {
		name := CleanName(match[1])
		value := match[2]
		unit := match[3]

		if !validName(name) {
			res.Dropped++
			continue
		}
		if value == "" || unit == "" {
			res.Dropped++
			continue
		}

		key := normalizeKey(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		res.Candidates = append(res.Candidates, Candidate{
			Name:  name,
			Value: value,
			Unit:  unit,
		})
	}

	return res, nil
}
