package text

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apacheHeader = `Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an "AS IS" BASIS.`

func sourceWithHeader(codeLines int) string {
	var b strings.Builder
	for _, l := range strings.Split(apacheHeader, "\n") {
		b.WriteString("// " + l + "\n")
	}
	for i := range codeLines {
		fmt.Fprintf(&b, "func handler%d(w http.ResponseWriter, r *http.Request) { count += %d }\n", i, i*7)
	}
	return b.String()
}

func TestOptimizeFindsEmbeddedHeader(t *testing.T) {
	query := New(sourceWithHeader(200))
	ref := New(apacheHeader)

	whole := query.Score(ref)
	score, r := Optimize(query, ref)

	assert.Equal(t, LineRange{Start: 0, End: 3}, r)
	assert.Equal(t, 1.0, score)
	assert.Greater(t, score, DefaultOptimizer.Floor)
	assert.Less(t, whole, 0.5, "whole-document score should be much lower")
}

func TestOptimizeFindsHeaderInTheMiddle(t *testing.T) {
	var b strings.Builder
	for i := range 50 {
		fmt.Fprintf(&b, "var unrelated%d = compute(%d)\n", i, i)
	}
	b.WriteString("/*\n" + apacheHeader + "\n*/\n")
	for i := range 50 {
		fmt.Fprintf(&b, "const other%d = %d\n", i, i)
	}

	score, r := Optimize(New(b.String()), New(apacheHeader))
	assert.Equal(t, 1.0, score)
	assert.Equal(t, 51, r.Start)
	assert.Equal(t, 54, r.End)
}

func TestOptimizeReferenceLongerThanQuery(t *testing.T) {
	query := New("Licensed under the Apache License, Version 2.0")
	ref := New(apacheHeader)

	score, r := Optimize(query, ref)
	assert.Equal(t, FullRange(1), r)
	assert.Equal(t, query.Score(ref), score)
}

func TestOptimizeFallsBackBelowFloor(t *testing.T) {
	query := New(strings.Repeat("nothing to see here at all\nmore words follow\n", 20))
	ref := New(apacheHeader)

	score, r := Optimize(query, ref)
	assert.Equal(t, FullRange(query.LineCount()), r)
	assert.Equal(t, query.Score(ref), score)
}

func TestOptimizeEmptyQuery(t *testing.T) {
	score, r := Optimize(New(""), New(apacheHeader))
	assert.Equal(t, 0.0, score)
	assert.True(t, r.Empty())
}

func TestOptimizeRangeWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := strings.Fields(strings.ToLower(apacheHeader) + " alpha beta gamma delta")
	ref := New(apacheHeader)

	for iter := range 200 {
		lines := make([]string, 1+rng.Intn(40))
		for i := range lines {
			n := rng.Intn(8)
			parts := make([]string, n)
			for j := range parts {
				parts[j] = words[rng.Intn(len(words))]
			}
			lines[i] = strings.Join(parts, " ")
		}
		query := New(strings.Join(lines, "\n"))
		if query.LineCount() == 0 {
			continue
		}
		opt := Optimizer{Floor: 0, MaxSteps: 32, MinLines: 2}

		score, r := opt.Optimize(query, ref)
		require.GreaterOrEqual(t, r.Start, 0, "iteration %d", iter)
		require.Less(t, r.End, query.LineCount(), "iteration %d", iter)
		require.False(t, r.Empty(), "iteration %d", iter)
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)
		require.InDelta(t, query.Slice(r).Score(ref), score, 1e-9, "iteration %d", iter)
	}
}

func TestWindowMatchesSliceScore(t *testing.T) {
	query := New(sourceWithHeader(30) + "\nCopyright (c) 2020 Someone\n\nsingle\n" + apacheHeader)
	ref := New(apacheHeader)
	win := newWindow(query.index(), ref.fp)

	rng := rand.New(rand.NewSource(11))
	n := query.LineCount()
	for range 500 {
		s := rng.Intn(n)
		e := s + rng.Intn(n-s)
		want := query.Slice(LineRange{Start: s, End: e}).Score(ref)
		require.InDelta(t, want, win.score(s, e), 1e-9, "range %d-%d", s, e)
	}
}
