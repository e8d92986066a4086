package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat2(t *testing.T) {
	assert := assert.New(t)

	a := SortedPairs(map[string]int{"b": 2, "a": 1})
	b := SortedPairs(map[string]int{"c": 3})

	var keys []string
	var vals []int
	for k, v := range Concat2(a, b) {
		keys = append(keys, k)
		vals = append(vals, v)
	}

	assert.Equal([]string{"a", "b", "c"}, keys)
	assert.Equal([]int{1, 2, 3}, vals)
}

func TestConcat2Stop(t *testing.T) {
	assert := assert.New(t)

	seq := Concat2(maps.All(map[int]int{1: 1}), maps.All(map[int]int{2: 2}))
	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(1, count)
}
