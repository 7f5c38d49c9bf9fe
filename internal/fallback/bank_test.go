package fallback

import (
	"math/rand/v2"
	"testing"

	"ccee-sentinel/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedQuestionsAreValid(t *testing.T) {
	bank, err := Load(rand.NewPCG(1, 2))
	require.NoError(t, err)

	for key, qs := range bank.questions {
		require.NotEmpty(t, qs, key)
		for _, q := range qs {
			assert.NoError(t, q.Validate())
			assert.Equal(t, domain.SourceFallback, q.Source)
		}
	}
	assert.Contains(t, bank.questions, GeneralKey)
}

func TestParse_RejectsInvalidQuestion(t *testing.T) {
	_, err := Parse([]byte(`{"general":[{"question":"q","options":["a"],"correctAnswer":0}]}`), nil)
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`), nil)
	assert.Error(t, err)
}

func testBank() *Bank {
	q := func(topic, text string) domain.Question {
		return domain.Question{Topic: topic, Question: text, Options: []string{"a", "b"}, Source: domain.SourceFallback}
	}
	return New(map[string][]domain.Question{
		GeneralKey: {q("General", "g1"), q("General", "g2")},
		"cos_sdm":  {q("Deadlocks", "d1"), q("Paging", "p1"), q("Git", "s1")},
		"java":     {q("Strings", "j1")},
	}, rand.NewPCG(7, 7))
}

func TestSample_PrefersTopicMatches(t *testing.T) {
	got := testBank().Sample("cos_sdm", []string{"Deadlocks"}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].Question)
	assert.NotEqual(t, "g1", got[1].Question)
	assert.NotEqual(t, "g2", got[1].Question)
}

func TestSample_FillsFromGeneralAndCapsAtPool(t *testing.T) {
	bank := testBank()

	got := bank.Sample("java", nil, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "j1", got[0].Question)
	assert.Equal(t, 3, bank.Size("java"))

	seen := map[string]bool{}
	for _, q := range bank.Sample("cos_sdm", nil, 10) {
		assert.False(t, seen[q.Question], "duplicate %s", q.Question)
		seen[q.Question] = true
	}
	assert.Len(t, seen, 5)
	assert.Empty(t, bank.Sample("java", nil, 0))
}

func TestSample_UnknownModuleUsesGeneral(t *testing.T) {
	bank := testBank()
	got := bank.Sample("unknown", []string{"Anything"}, 5)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, bank.Size("unknown"))
}

func TestKeyFor_ContainedKey(t *testing.T) {
	bank := testBank()
	assert.Equal(t, "java", bank.keyFor("core_java"))
	assert.Equal(t, "cos_sdm", bank.keyFor("COS_SDM"))
	assert.Equal(t, GeneralKey, bank.keyFor("wpt"))
}
