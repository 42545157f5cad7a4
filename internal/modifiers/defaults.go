package modifiers

func f(v float64) *float64 { return &v }

// Default returns a fresh copy of the built-in benchmarks used until the
// user saves their own.
func Default() Table {
	return Table{
		"Targeted Display": {
			Patterns: PerformancePatterns{Seasonal: map[Quarter]Metrics{
				Q1: {CTR: f(0.42), CPM: f(7.50), CPC: f(1.63)},
				Q2: {CTR: f(0.55), CPM: f(6.23), CPC: f(1.27)},
				Q3: {CTR: f(0.50), CPM: f(6.73), CPC: f(1.43)},
				Q4: {CTR: f(0.72), CPM: f(5.37), CPC: f(0.90)},
			}},
			Geographic: GeographicBaselines{Regions: map[Region]Metrics{
				Northeast: {CTR: f(0.58), CPC: f(1.35), CVR: f(2.8)},
				Southeast: {CTR: f(0.52), CPC: f(1.15), CVR: f(3.2)},
				Midwest:   {CTR: f(0.48), CPC: f(1.05), CVR: f(3.5)},
				Southwest: {CTR: f(0.55), CPC: f(1.25), CVR: f(3.0)},
				West:      {CTR: f(0.62), CPC: f(1.45), CVR: f(2.6)},
			}},
		},
		"TrueView": {
			Patterns: PerformancePatterns{Seasonal: map[Quarter]Metrics{
				Q1: {CTR: f(0.68), CPV: f(0.16), ViewRate: f(32.5)},
				Q2: {CTR: f(0.75), CPV: f(0.13), ViewRate: f(36.4)},
				Q3: {CTR: f(0.68), CPV: f(0.15), ViewRate: f(32.5)},
				Q4: {CTR: f(0.92), CPV: f(0.10), ViewRate: f(43.8)},
			}},
			Geographic: GeographicBaselines{Regions: map[Region]Metrics{
				Northeast: {CTR: f(0.78), CPV: f(0.14), ViewRate: f(37.2)},
				Southeast: {CTR: f(0.72), CPV: f(0.12), ViewRate: f(35.8)},
				Midwest:   {CTR: f(0.68), CPV: f(0.11), ViewRate: f(34.5)},
				Southwest: {CTR: f(0.75), CPV: f(0.13), ViewRate: f(36.1)},
				West:      {CTR: f(0.82), CPV: f(0.15), ViewRate: f(38.9)},
			}},
		},
		"Meta": {
			Patterns: PerformancePatterns{Seasonal: map[Quarter]Metrics{
				Q1: {CTR: f(0.92), CPM: f(11.50), CPC: f(2.08)},
				Q2: {CTR: f(1.08), CPM: f(10.23), CPC: f(1.60)},
				Q3: {CTR: f(0.95), CPM: f(11.20), CPC: f(1.90)},
				Q4: {CTR: f(1.32), CPM: f(9.40), CPC: f(1.20)},
			}},
			Geographic: GeographicBaselines{Regions: map[Region]Metrics{
				Northeast: {CTR: f(1.18), CPC: f(1.75), CVR: f(4.2)},
				Southeast: {CTR: f(1.05), CPC: f(1.55), CVR: f(4.8)},
				Midwest:   {CTR: f(0.98), CPC: f(1.45), CVR: f(5.1)},
				Southwest: {CTR: f(1.12), CPC: f(1.65), CVR: f(4.5)},
				West:      {CTR: f(1.25), CPC: f(1.85), CVR: f(3.9)},
			}},
		},
	}
}
