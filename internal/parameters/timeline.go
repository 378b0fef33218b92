package parameters

import (
	"fmt"
	"sort"
)

var monthLabels = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// TimelineItem is a periodic association of a company with its values.
type TimelineItem struct {
	Parameter Parameter
	Values    []TemporalValue
}

// TimelineGroup lists the parameters of one parameter type.
type TimelineGroup struct {
	TypeName   string              `json:"typeName"`
	Parameters []TimelineParameter `json:"parameters"`
}

// TimelineParameter is a parameter with its period labels in chronological order.
type TimelineParameter struct {
	ID          int64    `json:"id"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Nature      Nature   `json:"nature"`
	Periods     []string `json:"periods"`
}

// Label renders a value as "Jan/2024" or "1º Tri/2024".
func Label(v TemporalValue) string {
	switch {
	case v.Month != nil && *v.Month >= 1 && *v.Month <= 12:
		return fmt.Sprintf("%s/%d", monthLabels[*v.Month-1], v.Year)
	case v.Quarter != nil:
		return fmt.Sprintf("%dº Tri/%d", *v.Quarter, v.Year)
	}
	return fmt.Sprint(v.Year)
}

// BuildTimeline groups periodic associations by parameter type name.
func BuildTimeline(items []TimelineItem) []TimelineGroup {
	byType := map[string]*TimelineGroup{}
	for _, item := range items {
		if !item.Parameter.Type.Nature.Periodic() {
			continue
		}
		values := append([]TemporalValue(nil), item.Values...)
		sort.SliceStable(values, func(i, j int) bool {
			return values[i].Start().Before(values[j].Start())
		})
		periods := make([]string, 0, len(values))
		for _, v := range values {
			periods = append(periods, Label(v))
		}
		name := item.Parameter.Type.Name
		group, ok := byType[name]
		if !ok {
			group = &TimelineGroup{TypeName: name}
			byType[name] = group
		}
		group.Parameters = append(group.Parameters, TimelineParameter{
			ID:          item.Parameter.ID,
			Code:        item.Parameter.Code,
			Description: item.Parameter.Description,
			Nature:      item.Parameter.Type.Nature,
			Periods:     periods,
		})
	}
	out := make([]TimelineGroup, 0, len(byType))
	for _, g := range byType {
		sort.Slice(g.Parameters, func(i, j int) bool { return g.Parameters[i].Code < g.Parameters[j].Code })
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}
