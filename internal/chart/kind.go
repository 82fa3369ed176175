package chart

import "fmt"

// Kind identifies one of the tracked weekly rankings.
type Kind string

// Tracked chart kinds.
const (
	Hot100       Kind = "hot-100"
	Billboard200 Kind = "billboard-200"
)

// Kinds lists every chart kind in the order a run visits them.
var Kinds = []Kind{Hot100, Billboard200}

// ParseKind resolves a chart path or store name into a Kind.
func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds {
		if raw == string(k) || raw == k.StoreName() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", raw)
}

// Path is the URL path segment the publisher uses for the chart.
func (k Kind) Path() string {
	return string(k)
}

// StoreName is the base name of the persisted store for the chart.
func (k Kind) StoreName() string {
	switch k {
	case Hot100:
		return "hot_100"
	case Billboard200:
		return "billboard_200"
	default:
		return string(k)
	}
}

// TitleField is the column name used for the ranked item's title.
func (k Kind) TitleField() string {
	if k == Billboard200 {
		return "album"
	}
	return "song"
}

// DisplayName is a human-readable label.
func (k Kind) DisplayName() string {
	switch k {
	case Hot100:
		return "Hot 100"
	case Billboard200:
		return "Billboard 200"
	default:
		return string(k)
	}
}

// Columns returns the header row for the chart's store.
func (k Kind) Columns() []string {
	return []string{
		"date",
		"rank",
		k.TitleField(),
		"artist",
		"last_week",
		"peak_position",
		"weeks_on_chart",
	}
}

func (k Kind) String() string {
	return string(k)
}
