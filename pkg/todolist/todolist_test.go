package todolist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownRoundTrip(t *testing.T) {
	md := "- [ ] navigate to amazon\n- [x] search for toothpaste\n- [ ] add to cart"
	list := Parse(md)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, md, list.Markdown())
}

func TestCompleteEmptyListIsComplete(t *testing.T) {
	var list *TodoList
	assert.True(t, list.Complete())

	list = New(nil)
	assert.True(t, list.Complete())
}

func TestNextOpenSkipsDoneItems(t *testing.T) {
	list := Parse("- [x] step one\n- [ ] step two\n- [ ] step three")
	item, ok := list.NextOpen()
	require.True(t, ok)
	assert.Equal(t, "step two", item.Text)
}

func TestCompleteFalseWhileAnyOpen(t *testing.T) {
	list := Parse("- [x] a\n- [ ] b")
	assert.False(t, list.Complete())
}

func TestParseIgnoresStrayLines(t *testing.T) {
	list := Parse("Here is the plan:\n- [ ] one\n\n- [x] two\nThanks!")
	require.Equal(t, 2, list.Len())
}

func TestIdempotentSetOnIdenticalInput(t *testing.T) {
	md := "- [ ] a\n- [x] b"
	first := Parse(md).Markdown()
	second := Parse(first).Markdown()
	assert.Equal(t, first, second)
}
