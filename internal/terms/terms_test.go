package terms

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/types"
)

// =============================================================================
// Tokenizer
// =============================================================================

func TestTokens(t *testing.T) {
	tok := NewTokenizer(nil)

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"folds and merges", "Développeur ROS 2 / C++ sous MoveIt", []string{"developpeur", "ros2", "c++", "moveit"}},
		{"drops stopwords and boilerplate", "Le poste est basé dans la région (H/F)", []string{"base", "region"}},
		{"drops digits and single letters", "3 ans, 2025, x y robot", []string{"robot"}},
		{"keeps inner punctuation", "temps-réel et pick_and_place", []string{"temps-reel", "pick_and_place"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Tokens(tt.in))
		})
	}
}

func TestTokens_ExtraStopwords(t *testing.T) {
	tok := NewTokenizer([]string{"Mulhouse", " ", "ALSACE"})
	assert.Equal(t, []string{"robotique"}, tok.Tokens("Robotique Mulhouse Alsace"))
}

func TestBigrams(t *testing.T) {
	assert.Equal(t, []string{"vision industrielle", "industrielle opencv"}, Bigrams([]string{"vision", "industrielle", "opencv"}))
	assert.Nil(t, Bigrams([]string{"solo"}))
	assert.Nil(t, Bigrams(nil))
}

// =============================================================================
// Mine
// =============================================================================

var (
	robotics = []string{
		"Ingénieur robotique ROS 2 MoveIt Gazebo",
		"Développeur ROS 2 navigation autonome lidar",
		"Roboticien ROS 2 MoveIt manipulateur",
	}
	others = []string{
		"Comptable fournisseurs Excel",
		"Chauffeur livreur permis Excel",
		"Assistant comptable paie Excel",
		"Vendeur magasin caisse",
	}
)

func allTerms() Options {
	return Options{MinDF: 0, MaxDF: 1, Alpha: 0.01}
}

func byTerm(ts []Term) map[string]Term {
	out := make(map[string]Term, len(ts))
	for _, t := range ts {
		out[t.Term] = t
	}
	return out
}

func TestMine_RanksTargetVocabularyFirst(t *testing.T) {
	res, err := Mine(robotics, others, allTerms())
	require.NoError(t, err)

	assert.Equal(t, 3, res.TargetDocs)
	assert.Equal(t, 4, res.BackgroundDocs)
	require.NotEmpty(t, res.Tokens)
	assert.Equal(t, "ros2", res.Tokens[0].Term)
	assert.Equal(t, 3, res.Tokens[0].TargetCount)
	assert.Equal(t, 0, res.Tokens[0].BackgroundCount)
	assert.Greater(t, res.Tokens[0].Score, 0.0)
	assert.Greater(t, res.Tokens[0].Z, 0.0)

	last := res.Tokens[len(res.Tokens)-1]
	assert.Equal(t, "excel", last.Term)
	assert.Less(t, last.Score, 0.0)

	bigrams := byTerm(res.Bigrams)
	assert.Contains(t, bigrams, "ros2 moveit")
	assert.Greater(t, bigrams["ros2 moveit"].Score, 0.0)
}

func TestMine_OrderIsScoreThenTerm(t *testing.T) {
	res, err := Mine(robotics, others, allTerms())
	require.NoError(t, err)

	for i := 1; i < len(res.Tokens); i++ {
		prev, cur := res.Tokens[i-1], res.Tokens[i]
		if prev.Score == cur.Score {
			assert.Less(t, prev.Term, cur.Term)
		} else {
			assert.Greater(t, prev.Score, cur.Score)
		}
	}
}

func TestMine_SwappingSubsetsNegatesScores(t *testing.T) {
	forward, err := Mine(robotics, others, allTerms())
	require.NoError(t, err)
	backward, err := Mine(others, robotics, allTerms())
	require.NoError(t, err)

	for _, lists := range [][2][]Term{{forward.Tokens, backward.Tokens}, {forward.Bigrams, backward.Bigrams}} {
		fwd, bwd := byTerm(lists[0]), byTerm(lists[1])
		require.Equal(t, len(fwd), len(bwd))
		for term, f := range fwd {
			b, ok := bwd[term]
			require.True(t, ok, term)
			assert.InDelta(t, -f.Score, b.Score, 1e-12, term)
			assert.InDelta(t, -f.Z, b.Z, 1e-12, term)
			assert.Equal(t, f.TargetCount, b.BackgroundCount, term)
		}
	}
}

func TestMine_DocumentFrequencyPruningIsCorpusWide(t *testing.T) {
	target := []string{"robot alpha", "robot beta", "robot gamma"}
	background := []string{"robot delta", "vendeur epsilon", "vendeur zeta", "vendeur eta", "vendeur theta"}

	// "robot" is in 4/8 docs, "vendeur" in 4/8: both above max_df even though
	// "vendeur" never appears in the target subset.
	opts := Options{MinDF: 0, MaxDF: 0.4, Alpha: 0.01}
	res, err := Mine(target, background, opts)
	require.NoError(t, err)
	tokens := byTerm(res.Tokens)
	assert.NotContains(t, tokens, "robot")
	assert.NotContains(t, tokens, "vendeur")
	assert.Contains(t, tokens, "alpha")

	swapped, err := Mine(background, target, opts)
	require.NoError(t, err)
	assert.Equal(t, len(res.Tokens), len(swapped.Tokens))

	// min_df above 1/8 drops every hapax.
	res, err = Mine(target, background, Options{MinDF: 0.2, MaxDF: 1, Alpha: 0.01})
	require.NoError(t, err)
	assert.Equal(t, []string{"robot", "vendeur"}, termNames(res.Tokens))
}

func termNames(ts []Term) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Term)
	}
	return out
}

func TestMine_TopN(t *testing.T) {
	opts := allTerms()
	opts.TopN = 3
	res, err := Mine(robotics, others, opts)
	require.NoError(t, err)
	assert.Len(t, res.Tokens, 3)
	assert.Len(t, res.Bigrams, 3)
}

func TestMine_EmptyInputs(t *testing.T) {
	res, err := Mine(nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Tokens)
	assert.Empty(t, res.Bigrams)

	res, err = Mine(robotics, nil, allTerms())
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens)
	for _, term := range res.Tokens {
		assert.False(t, math.IsNaN(term.Score), term.Term)
		assert.False(t, math.IsInf(term.Score, 0), term.Term)
		assert.False(t, math.IsNaN(term.Z), term.Term)
	}
}

func TestMine_InvalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"zero alpha", Options{MaxDF: 1}, "terms.alpha"},
		{"min above max", Options{MinDF: 0.5, MaxDF: 0.4, Alpha: 1}, "terms"},
		{"max above one", Options{MaxDF: 1.5, Alpha: 1}, "terms"},
		{"negative top", Options{MaxDF: 1, Alpha: 1, TopN: -1}, "terms.top_n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mine(robotics, others, tt.opts)
			var cfgErr *config.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// =============================================================================
// Postings
// =============================================================================

func TestMinePostings_PartitionsByTag(t *testing.T) {
	postings := []types.Posting{
		{ExternalID: "1", Title: "Ingénieur ROS 2", Description: "MoveIt Gazebo", Tags: []string{"CORE_ROBOTICS"}},
		{ExternalID: "2", Title: "Roboticien ROS 2", Description: "MoveIt", Tags: []string{"CORE_ROBOTICS", "LANG"}},
		{ExternalID: "3", Title: "Comptable", Description: "Excel paie"},
	}

	target, background := Partition(postings, "CORE_ROBOTICS")
	assert.Len(t, target, 2)
	assert.Len(t, background, 1)

	res, err := MinePostings(postings, "CORE_ROBOTICS", allTerms())
	require.NoError(t, err)
	assert.Equal(t, 2, res.TargetDocs)
	assert.Equal(t, 1, res.BackgroundDocs)
	assert.Contains(t, []string{"moveit", "ros2"}, res.Tokens[0].Term)
}

func TestTerm_String(t *testing.T) {
	term := Term{Term: "ros2", Score: 1.23456, Z: 2.5, TargetCount: 3, BackgroundCount: 0}
	assert.Equal(t, "ros2 (1.235, z=2.50, 3/0)", term.String())
}
