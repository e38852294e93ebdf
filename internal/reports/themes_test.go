package reports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitPhrases(t *testing.T) {
	got := SplitPhrases("waiting for review; env broken\nAPI limit hit, flaky tests")
	require.Equal(t, []string{"waiting for review", "env broken", "API limit hit", "flaky tests"}, got)
	require.Empty(t, SplitPhrases("  \n ; , "))
}

func TestClassifyPhrase_FirstMatchingThemeWins(t *testing.T) {
	rules := []ThemeRule{
		{Theme: "A", Keywords: []string{"deploy"}},
		{Theme: "B", Keywords: []string{"waiting", "deploy"}},
	}
	// "waiting for deploy" matches both A and B; declaration order decides.
	for i := 0; i < 50; i++ {
		require.Equal(t, "A", ClassifyPhrase("waiting for deploy", rules))
	}
	require.Equal(t, "B", ClassifyPhrase("waiting on QA", rules))
	require.Equal(t, ThemeOther, ClassifyPhrase("nothing noteworthy", rules))
}

func TestClassifyPhrase_NormalizesCaseAndPunctuation(t *testing.T) {
	require.Equal(t, "CODE_REVIEW", ClassifyPhrase("Waiting on REVIEW!!!", DefaultThemeRules))
	require.Equal(t, "DEPLOYMENT", ClassifyPhrase("blocked: deploy pipeline broken", DefaultThemeRules))
}

func TestClassifyBlockers_CapsAndRanking(t *testing.T) {
	var phrases []BlockerPhrase
	// 5 identical review blockers on project 1, 2 env blockers on project 2,
	// plus 12 distinct OTHER phrases spread over 7 projects.
	for i := 0; i < 5; i++ {
		phrases = append(phrases, BlockerPhrase{ProjectID: 1, Text: "waiting on code review"})
	}
	phrases = append(phrases,
		BlockerPhrase{ProjectID: 2, Text: "staging environment down"},
		BlockerPhrase{ProjectID: 2, Text: "staging environment down"},
	)
	for i := 0; i < 12; i++ {
		phrases = append(phrases, BlockerPhrase{ProjectID: int64(3 + i%7), Text: unclassifiable(i)})
	}

	out := ClassifyBlockers(phrases, DefaultThemeRules)
	require.Equal(t, len(phrases), out.TotalPhrases)

	require.Equal(t, ThemeOther, out.Themes[0].Theme)
	require.Equal(t, 12, out.Themes[0].Count)
	require.LessOrEqual(t, len(out.Themes[0].Examples), 3)

	require.LessOrEqual(t, len(out.TopBlockers), 10)
	require.Equal(t, "waiting on code review", out.TopBlockers[0].Phrase)
	require.Equal(t, 5, out.TopBlockers[0].Count)

	require.LessOrEqual(t, len(out.TopProjects), 5)
	require.Equal(t, int64(1), out.TopProjects[0].ProjectID)
}

func TestClassifyBlockers_StableAcrossRuns(t *testing.T) {
	phrases := []BlockerPhrase{
		{ProjectID: 1, Text: "alpha issue"},
		{ProjectID: 2, Text: "beta issue"},
		{ProjectID: 3, Text: "gamma issue"},
	}
	first := ClassifyBlockers(phrases, nil)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, ClassifyBlockers(phrases, nil))
	}
}

func TestExtractPhrases(t *testing.T) {
	got := ExtractPhrases(9, "vpn down; waiting on access", "upstream api")
	require.Len(t, got, 3)
	for _, p := range got {
		require.Equal(t, int64(9), p.ProjectID)
	}
}

// unclassifiable fabricates phrases that match no default keyword.
func unclassifiable(i int) string {
	words := []string{"quiet", "routine", "steady", "usual", "typical", "plain"}
	return words[i%len(words)] + " item " + string(rune('a'+i))
}
