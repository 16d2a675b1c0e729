package differenceutil

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifferenceAndIntersectionStrings(t *testing.T) {
	onlySrc, both, onlyDes := DifferenceAndIntersectionStrings([]string{"relay01", "relay02"}, []string{"relay02", "dimmer01"})
	assert.Equal(t, []string{"relay01"}, onlySrc)
	assert.Equal(t, []string{"relay02"}, both)
	assert.Equal(t, []string{"dimmer01"}, onlyDes)
}

func TestDifferenceAndIntersectionObjects(t *testing.T) {
	onlySrc, both, onlyDes := DifferenceAndIntersectionObjects([]int{1, 2}, []string{"2", "3"},
		func(i int) string { return strconv.Itoa(i) },
		func(s string) string { return s })
	assert.ElementsMatch(t, []string{"1"}, onlySrc)
	assert.ElementsMatch(t, []string{"2"}, both)
	assert.ElementsMatch(t, []string{"3"}, onlyDes)
}
