package prompt

import (
	"fmt"
	"strings"
)

var sections = []string{
	"Executive Summary",
	"Performance Analysis by Tactic",
	"Trend Analysis",
	"Strategic Optimization Recommendations",
	"Analysis Time Range",
}

var timeRangeInstructions = map[string]string{
	"Last 30 days":  "Focus on recent performance trends and immediate optimization opportunities",
	"Last 60 days":  "Analyze month-over-month changes and emerging patterns",
	"Last 90 days":  "Evaluate quarterly performance and seasonal trends",
	"Last 120 days": "Assess campaign evolution and long-term effectiveness",
	"Last 150 days": "Analyze extended performance patterns and strategic shifts",
	"Last 180 days": "Provide comprehensive half-year analysis with strategic insights",
	"Custom":        "Analyze performance within the specified date range",
}

// TimeRangeLabel is the label a range of days is shown and looked up under.
func TimeRangeLabel(days int) string { return fmt.Sprintf("Last %d days", days) }

// TimeRangeInstruction returns the analyst instruction for a range of days;
// ranges without a dedicated instruction get the custom one.
func TimeRangeInstruction(days int) string {
	if s, ok := timeRangeInstructions[TimeRangeLabel(days)]; ok {
		return s
	}
	return timeRangeInstructions["Custom"]
}

func guidelines(days int, tone, objective, extra string) string {
	var b strings.Builder
	b.WriteString("You are an expert digital marketing analyst. Analyze the campaign performance data following these strict guidelines:\n\n")
	b.WriteString("REPORT STRUCTURE (MUST FOLLOW THIS EXACT ORDER):\n")
	for i, s := range sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString(`
SECTION REQUIREMENTS:

1. Executive Summary:
- Provide 3 bullet points covering: Overall performance, Key achievements, Critical insights
- Keep it high-level and impactful

2. Performance Analysis by Tactic:
- Create a separate subsection for EACH tactic in the data
- For each tactic include: Performance metrics with single averages (not ranges), Geographic performance insights, Device/platform performance where relevant, Creative performance highlights, Specific strengths and opportunities
- Present metrics as single averages (e.g., "CTR: 2.45%" NOT "CTR: 2-3%")

3. Trend Analysis:
- Include subsections for: Monthly Performance Trends, Pattern Analysis (Geographic, Creative, or other relevant patterns)
- Use actual data to support trend identification
- Highlight significant changes or patterns

4. Strategic Optimization Recommendations:
- Organize into these categories: Geographic Optimization, Creative Strategy, Audience Development, Measurement Improvements
- Make recommendations specific and actionable
- Prioritize by potential impact

`)
	fmt.Fprintf(&b, "TIME RANGE CONTEXT: %s\n\n", TimeRangeInstruction(days))
	if objective != "" {
		fmt.Fprintf(&b, "CAMPAIGN OBJECTIVE: %s - Ensure all analysis relates back to this objective.\n\n", objective)
	}
	b.WriteString("FORMATTING REQUIREMENTS:\n")
	b.WriteString("- Present all metrics as single values with appropriate precision\n")
	fmt.Fprintf(&b, "- Use %s tone\n", tone)
	b.WriteString("- Focus on opportunities over problems\n")
	b.WriteString("- Be specific with recommendations\n\n")
	if extra != "" {
		fmt.Fprintf(&b, "ADDITIONAL INSTRUCTIONS: %s\n\n", extra)
	}
	b.WriteString(`Remember: Each tactic gets its own detailed analysis section. Do not group tactics into generic categories like "Funnel Analysis" or "Device Performance" - analyze each tactic individually.`)
	return b.String()
}
