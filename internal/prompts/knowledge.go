package prompts

import (
	"embed"
	"path"
	"strings"
)

//go:embed knowledge/*.txt
var knowledgeFS embed.FS

// Lifts with dedicated knowledge, in output order.
var Lifts = []string{"bench_press", "squat", "deadlift", "overhead_press"}

var (
	programWords = []string{"program", "routine", "plan", "schedule"}
	injuryWords  = []string{"pain", "injury", "hurt", "sore"}
)

func snippet(name string) string {
	data, err := knowledgeFS.ReadFile(path.Join("knowledge", name+".txt"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// RelevantKnowledge picks knowledge snippets for query and the lifter's data.
// Progressive overload is always included.
func RelevantKnowledge(query string, d Day) string {
	chunks := []string{snippet("progressive_overload")}
	q := strings.ToLower(query)

	for _, lift := range Lifts {
		_, hasMax := d.MaxLifts[lift]
		_, hasRecent := d.RecentLifts[lift]
		if hasMax || hasRecent || strings.Contains(q, strings.ReplaceAll(lift, "_", " ")) {
			chunks = append(chunks, snippet(lift))
		}
	}
	if d.SleepHours > 0 || d.Soreness > 0 {
		chunks = append(chunks, snippet("recovery_nutrition"))
	}
	if containsAny(q, programWords) {
		chunks = append(chunks, snippet("programs"))
	}
	if containsAny(q, injuryWords) {
		chunks = append(chunks, snippet("injury_prevention"))
	}
	return strings.Join(chunks, "\n\n")
}

// Enhance wraps prompt with the knowledge relevant to it.
func Enhance(prompt string, d Day) string {
	var b strings.Builder
	b.WriteString("EXPERT KNOWLEDGE BASE:\n")
	b.WriteString(RelevantKnowledge(prompt, d))
	b.WriteString("\n\nYOUR TASK:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nUse the knowledge above to provide accurate, expert-level coaching.")
	return b.String()
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
