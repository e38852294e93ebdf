/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package reports

import (
	"regexp"
	"sort"
	"strings"
)

// ThemeOther is the fall-through theme for phrases no rule matches.
const ThemeOther = "OTHER"

// ThemeRule maps a theme to the keywords that select it. Rules are
// evaluated in declaration order and the first match wins, so precedence
// lives in the slice order, not in the keywords.
type ThemeRule struct {
	Theme    string
	Keywords []string
}

// DefaultThemeRules is the ordered rule list for blocker/dependency
// classification. Order matters: "waiting for deploy" should classify as
// DEPLOYMENT, not WAITING.
var DefaultThemeRules = []ThemeRule{
	{Theme: "ENVIRONMENT", Keywords: []string{"environment", "env ", "staging", "vpn", "local setup", "docker"}},
	{Theme: "DEPLOYMENT", Keywords: []string{"deploy", "release", "pipeline", "build fail", "ci "}},
	{Theme: "EXTERNAL_DEPENDENCY", Keywords: []string{"third party", "vendor", "external", "api limit", "upstream"}},
	{Theme: "CODE_REVIEW", Keywords: []string{"review", "approval", "pr ", "merge"}},
	{Theme: "REQUIREMENTS", Keywords: []string{"requirement", "unclear", "clarif", "spec", "design decision"}},
	{Theme: "ACCESS", Keywords: []string{"access", "permission", "credential", "account", "token"}},
	{Theme: "WAITING", Keywords: []string{"waiting", "blocked by", "depends on", "pending"}},
	{Theme: "TECHNICAL", Keywords: []string{"bug", "error", "crash", "flaky", "database", "migration"}},
}

var (
	phraseSplitter = regexp.MustCompile(`[\n\r;,-]+`)
	punctStripper  = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// SplitPhrases breaks a free-text blocker field into candidate phrases.
func SplitPhrases(text string) []string {
	var out []string
	for _, p := range phraseSplitter.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ClassifyPhrase assigns the first matching theme by rule order, or
// ThemeOther when nothing matches.
func ClassifyPhrase(phrase string, rules []ThemeRule) string {
	norm := " " + punctStripper.ReplaceAllString(strings.ToLower(phrase), " ") + " "
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(norm, strings.ToLower(kw)) {
				return r.Theme
			}
		}
	}
	return ThemeOther
}

const (
	maxThemeExamples = 3
	maxTopBlockers   = 10
	maxTopProjects   = 5
)

// ThemeCount is one classified theme with capped example phrases.
type ThemeCount struct {
	Theme    string   `json:"theme"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// PhraseCount ranks a raw phrase by how often it appeared.
type PhraseCount struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// ProjectCount ranks a project by blocker volume.
type ProjectCount struct {
	ProjectID int64 `json:"projectId"`
	Count     int   `json:"count"`
}

// BlockerPhrase is one extracted phrase with its source project.
type BlockerPhrase struct {
	ProjectID int64
	Text      string
}

// ThemeBreakdown holds the full blocker-themes aggregation.
type ThemeBreakdown struct {
	TotalPhrases int            `json:"totalPhrases"`
	Themes       []ThemeCount   `json:"themes"`
	TopBlockers  []PhraseCount  `json:"topBlockers"`
	TopProjects  []ProjectCount `json:"topProjects"`
}

// ClassifyBlockers classifies every phrase against the ordered rules and
// ranks themes, recurring phrases and noisiest projects by frequency.
// Ties rank alphabetically (or by id) so output is stable across runs.
func ClassifyBlockers(phrases []BlockerPhrase, rules []ThemeRule) ThemeBreakdown {
	themeCounts := map[string]*ThemeCount{}
	phraseCounts := map[string]int{}
	projectCounts := map[int64]int{}

	for _, p := range phrases {
		theme := ClassifyPhrase(p.Text, rules)
		tc, ok := themeCounts[theme]
		if !ok {
			tc = &ThemeCount{Theme: theme}
			themeCounts[theme] = tc
		}
		tc.Count++
		if len(tc.Examples) < maxThemeExamples {
			tc.Examples = append(tc.Examples, p.Text)
		}
		phraseCounts[strings.ToLower(p.Text)]++
		projectCounts[p.ProjectID]++
	}

	out := ThemeBreakdown{TotalPhrases: len(phrases)}

	for _, tc := range themeCounts {
		out.Themes = append(out.Themes, *tc)
	}
	sort.Slice(out.Themes, func(i, j int) bool {
		if out.Themes[i].Count != out.Themes[j].Count {
			return out.Themes[i].Count > out.Themes[j].Count
		}
		return out.Themes[i].Theme < out.Themes[j].Theme
	})

	for ph, c := range phraseCounts {
		out.TopBlockers = append(out.TopBlockers, PhraseCount{Phrase: ph, Count: c})
	}
	sort.Slice(out.TopBlockers, func(i, j int) bool {
		if out.TopBlockers[i].Count != out.TopBlockers[j].Count {
			return out.TopBlockers[i].Count > out.TopBlockers[j].Count
		}
		return out.TopBlockers[i].Phrase < out.TopBlockers[j].Phrase
	})
	if len(out.TopBlockers) > maxTopBlockers {
		out.TopBlockers = out.TopBlockers[:maxTopBlockers]
	}

	for id, c := range projectCounts {
		out.TopProjects = append(out.TopProjects, ProjectCount{ProjectID: id, Count: c})
	}
	sort.Slice(out.TopProjects, func(i, j int) bool {
		if out.TopProjects[i].Count != out.TopProjects[j].Count {
			return out.TopProjects[i].Count > out.TopProjects[j].Count
		}
		return out.TopProjects[i].ProjectID < out.TopProjects[j].ProjectID
	})
	if len(out.TopProjects) > maxTopProjects {
		out.TopProjects = out.TopProjects[:maxTopProjects]
	}

	return out
}

// ExtractPhrases pulls blocker and dependency phrases out of standup rows.
func ExtractPhrases(projectID int64, blockers, dependencies string) []BlockerPhrase {
	var out []BlockerPhrase
	for _, txt := range []string{blockers, dependencies} {
		for _, p := range SplitPhrases(txt) {
			out = append(out, BlockerPhrase{ProjectID: projectID, Text: p})
		}
	}
	return out
}
