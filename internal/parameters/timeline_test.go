package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "Jan/2024", Label(Month(2024, 1)))
	assert.Equal(t, "Dez/2023", Label(Month(2023, 12)))
	assert.Equal(t, "1º Tri/2024", Label(Quarter(2024, 1)))
	assert.Equal(t, "4º Tri/2025", Label(Quarter(2025, 4)))
}

func TestBuildTimelineGroupsAndSorts(t *testing.T) {
	retention := ParameterType{ID: 1, Name: "Retenções", Nature: NatureMonthly}
	estimate := ParameterType{ID: 2, Name: "Estimativas", Nature: NatureQuarterly}
	global := ParameterType{ID: 3, Name: "Gerais", Nature: NatureGlobal}

	items := []TimelineItem{
		{Parameter: Parameter{ID: 2, Code: "RET-02", Type: retention}, Values: []TemporalValue{Month(2024, 3), Month(2023, 11), Month(2024, 1)}},
		{Parameter: Parameter{ID: 1, Code: "RET-01", Type: retention}, Values: []TemporalValue{Month(2024, 2)}},
		{Parameter: Parameter{ID: 3, Code: "EST-01", Type: estimate}, Values: []TemporalValue{Quarter(2024, 2), Quarter(2024, 1)}},
		{Parameter: Parameter{ID: 4, Code: "GLB-01", Type: global}},
	}

	groups := BuildTimeline(items)
	require.Len(t, groups, 2)
	assert.Equal(t, "Estimativas", groups[0].TypeName)
	assert.Equal(t, []string{"1º Tri/2024", "2º Tri/2024"}, groups[0].Parameters[0].Periods)

	require.Equal(t, "Retenções", groups[1].TypeName)
	require.Len(t, groups[1].Parameters, 2)
	assert.Equal(t, "RET-01", groups[1].Parameters[0].Code)
	assert.Equal(t, []string{"Nov/2023", "Jan/2024", "Mar/2024"}, groups[1].Parameters[1].Periods)

	assert.Equal(t, Month(2024, 3), items[0].Values[0], "input must not be reordered")
}
