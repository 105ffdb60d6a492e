package store_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsablic/licensematch/internal/pool"
	"github.com/dsablic/licensematch/internal/spdx"
	"github.com/dsablic/licensematch/internal/store"
	"github.com/dsablic/licensematch/internal/text"
)

const unrelatedProse = `The quarterly report shows that revenue in the northern region grew
steadily while the marketing team focused on a new campaign for spring.
Several stores reopened after renovations and customer feedback improved.`

func builtin(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	st, err := spdx.Builtin(opts...)
	require.NoError(t, err)
	return st
}

func TestAnalyzeExactMIT(t *testing.T) {
	st := builtin(t)
	mit, ok := st.Get("MIT")
	require.True(t, ok)

	m := st.Analyze(text.New(mit.Original.Raw()))
	assert.Equal(t, "MIT", m.ID)
	assert.Equal(t, 1.0, m.Score)
	assert.Equal(t, store.Variant{Kind: store.Original}, m.Variant)
	assert.Equal(t, []string{"Expat", "MIT-Expat"}, m.Aliases)
	assert.True(t, m.Matched())
	assert.Nil(t, m.Range)
}

func TestAnalyzeRealWorldMIT(t *testing.T) {
	st := builtin(t)
	mit, _ := st.Get("MIT")
	raw := strings.Replace(mit.Original.Raw(), "Copyright (c) <year> <copyright holders>", "Copyright (c) 2016-2024 Example Corp.", 1)

	m := st.Analyze(text.New(raw))
	assert.Equal(t, "MIT", m.ID)
	assert.Equal(t, 1.0, m.Score)
}

func TestAnalyzeHeaderVariant(t *testing.T) {
	st := builtin(t)
	apache, _ := st.Get("Apache-2.0")

	m := st.Analyze(text.New(apache.Headers[0].Raw()))
	assert.Equal(t, "Apache-2.0", m.ID)
	assert.Equal(t, store.Variant{Kind: store.Header, Index: 0}, m.Variant)
	assert.Equal(t, 1.0, m.Score)
}

func TestAnalyzeNoMatch(t *testing.T) {
	st := builtin(t)
	m := st.Analyze(text.New(unrelatedProse))
	assert.False(t, m.Matched())
	assert.Empty(t, m.ID)
	assert.Less(t, m.Score, st.Floor())
	assert.Nil(t, m.Aliases)
}

func TestAnalyzeEmptyStore(t *testing.T) {
	m := store.New().Analyze(text.New("anything"))
	assert.Equal(t, store.Match{}, m)
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	st := builtin(t)
	m := st.Analyze(text.New(""))
	assert.False(t, m.Matched())
	assert.Equal(t, 0.0, m.Score)
}

func TestAnalyzeTieBreaksOnSmallestID(t *testing.T) {
	st := store.New(store.WithFloor(0))
	body := "identical license text for tie breaking purposes"
	for _, id := range []string{"Zeta", "Alpha", "Mid"} {
		require.NoError(t, st.AddLicense(id, body))
	}
	m := st.Analyze(text.New(body))
	assert.Equal(t, "Alpha", m.ID)
	assert.Equal(t, 1.0, m.Score)
}

func TestAnalyzeOriginalWinsTiesWithinEntry(t *testing.T) {
	st := store.New()
	body := "the same words appear in every form of this license"
	require.NoError(t, st.AddLicense("Same", body))
	require.NoError(t, st.AddHeader("Same", body))
	require.NoError(t, st.AddAlternate("Same", body))

	m := st.Analyze(text.New(body))
	assert.Equal(t, store.Variant{Kind: store.Original}, m.Variant)
}

func TestAnalyzeAlternateVariant(t *testing.T) {
	st := store.New()
	require.NoError(t, st.AddLicense("Foo", "foo license original wording about redistribution of source"))
	require.NoError(t, st.AddAlternate("Foo", "a reformatted foo license variant mentioning warranty"))
	require.NoError(t, st.AddAlternate("Foo", "entirely different second alternate text for foo"))

	m := st.Analyze(text.New("entirely different second alternate text for foo"))
	assert.Equal(t, "Foo", m.ID)
	assert.Equal(t, store.Variant{Kind: store.Alternate, Index: 1}, m.Variant)
	assert.Equal(t, "alternate #2", m.Variant.String())
}

func TestAnalyzeParallelMatchesSerial(t *testing.T) {
	serial := builtin(t, store.WithExecutor(pool.Serial()))
	queries := []string{unrelatedProse, ""}
	for _, id := range serial.Licenses() {
		e, _ := serial.Get(id)
		lines := strings.Split(e.Original.Raw(), "\n")
		queries = append(queries, e.Original.Raw(), strings.Join(lines[:len(lines)/2], "\n"))
	}

	for _, workers := range []int{2, 3, 16} {
		parallel := builtin(t, store.WithExecutor(pool.New(workers)))
		for _, q := range queries {
			tq := text.New(q)
			assert.Equal(t, serial.Analyze(tq), parallel.Analyze(tq), "workers=%d", workers)
			assert.Equal(t, serial.Candidates(tq, 3), parallel.Candidates(tq, 3), "workers=%d", workers)
		}
	}
}

func TestCandidates(t *testing.T) {
	st := builtin(t)
	bsd3, _ := st.Get("BSD-3-Clause")

	c := st.Candidates(bsd3.Original, 2)
	require.Len(t, c, 2)
	assert.Equal(t, "BSD-3-Clause", c[0].ID)
	assert.Equal(t, "BSD-2-Clause", c[1].ID)
	assert.Greater(t, c[0].Score, c[1].Score)

	assert.Len(t, st.Candidates(bsd3.Original, 100), st.Len())
	assert.Empty(t, st.Candidates(bsd3.Original, 0))
	assert.Empty(t, st.Candidates(bsd3.Original, -1))
}

func TestFinalizeAppliesFloor(t *testing.T) {
	st := store.New(store.WithFloor(0.9))
	low := st.Finalize(store.Match{ID: "X", Score: 0.5})
	assert.Equal(t, store.Match{Score: 0.5}, low)

	high := st.Finalize(store.Match{ID: "X", Score: 0.95})
	assert.Equal(t, "X", high.ID)
}

func TestAddLicenseValidation(t *testing.T) {
	st := store.New()
	assert.ErrorIs(t, st.AddLicense("", "some text"), store.ErrInvalidEntry)
	assert.ErrorIs(t, st.AddLicense("Blank", "  \n\t\n"), store.ErrInvalidEntry)
	assert.ErrorIs(t, st.AddHeader("Nope", "header"), store.ErrUnknownLicense)
	assert.ErrorIs(t, st.AddAlternate("Nope", "alt"), store.ErrUnknownLicense)
	assert.ErrorIs(t, st.AddAliases("Nope", "x"), store.ErrUnknownLicense)
	assert.Equal(t, 0, st.Len())
}

func TestAddLicenseReplaceKeepsAliases(t *testing.T) {
	st := store.New()
	require.NoError(t, st.AddLicense("Foo", "first foo text"))
	require.NoError(t, st.AddHeader("Foo", "foo header"))
	require.NoError(t, st.AddAliases("Foo", "Bar", "Bar", "Foo"))
	require.NoError(t, st.AddLicense("Foo", "second foo text"))

	e, _ := st.Get("Foo")
	assert.Equal(t, []string{"Bar"}, e.Aliases)
	assert.Empty(t, e.Headers)
	assert.Equal(t, "second foo text", e.Original.Raw())
	assert.Equal(t, []string{"Foo"}, st.Licenses())
}

func TestResolve(t *testing.T) {
	st := builtin(t)
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"MIT", "MIT", true},
		{"mit", "MIT", true},
		{"Expat", "MIT", true},
		{"asl-2.0", "Apache-2.0", true},
		{"GPL-3.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := st.Resolve(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestSuggest(t *testing.T) {
	st := builtin(t)
	got := st.Suggest("Apache-2", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Apache-2.0", got[0])

	assert.Contains(t, st.Suggest("BSD-3-Clase", 2), "BSD-3-Clause")
	assert.Empty(t, st.Suggest("zzzzzzzzzz", 3))
	assert.Nil(t, st.Suggest("MIT", 0))
}

func TestEntryText(t *testing.T) {
	st := builtin(t)
	apache, _ := st.Get("Apache-2.0")
	assert.Same(t, apache.Original, apache.Text(store.Variant{Kind: store.Original}))
	assert.Same(t, apache.Headers[0], apache.Text(store.Variant{Kind: store.Header}))
	assert.Nil(t, apache.Text(store.Variant{Kind: store.Alternate}))
	assert.Nil(t, apache.Text(store.Variant{Kind: store.Header, Index: 5}))
	assert.Len(t, apache.Forms(), 2)
}

func TestVariantKindText(t *testing.T) {
	for _, k := range []store.VariantKind{store.Original, store.Header, store.Alternate} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var back store.VariantKind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}
	var k store.VariantKind
	assert.Error(t, k.UnmarshalText([]byte("footer")))
}
