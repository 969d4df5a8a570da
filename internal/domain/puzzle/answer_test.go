package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAnswer_Text(t *testing.T) {
	solution := Text("Echo")

	assert.True(t, CheckAnswer(Text("echo"), solution))
	assert.True(t, CheckAnswer(Text("  ECHO  "), solution))
	assert.False(t, CheckAnswer(Text("shadow"), solution))
}

func TestCheckAnswer_Number(t *testing.T) {
	solution := Number(42)

	assert.True(t, CheckAnswer(Number(42), solution))
	assert.False(t, CheckAnswer(Number(41), solution))
	assert.False(t, CheckAnswer(Number(42.5), solution))
}

func TestCheckAnswer_IndexListOrderMatters(t *testing.T) {
	solution := IndexList{3, 1, 4}

	assert.True(t, CheckAnswer(IndexList{3, 1, 4}, solution))
	assert.False(t, CheckAnswer(IndexList{1, 3, 4}, solution))
	assert.False(t, CheckAnswer(IndexList{3, 1}, solution))
}

func TestCheckAnswer_WordList(t *testing.T) {
	solution := WordList{"cat", "dog"}

	assert.True(t, CheckAnswer(WordList{"CAT", " dog "}, solution))
	assert.False(t, CheckAnswer(WordList{"dog", "cat"}, solution))
	assert.False(t, CheckAnswer(WordList{"cat"}, solution))
}

func TestCheckAnswer_Grid(t *testing.T) {
	solution := Grid{{0, 1}, {1, 1}}

	assert.True(t, CheckAnswer(Grid{{0, 1}, {1, 1}}, solution))
	assert.False(t, CheckAnswer(Grid{{1, 0}, {1, 1}}, solution))
	assert.False(t, CheckAnswer(Grid{{0, 1}}, solution))
	assert.False(t, CheckAnswer(Grid{{0, 1}, {1}}, solution))
}

func TestCheckAnswer_KindMismatchIsIncorrectNotError(t *testing.T) {
	assert.False(t, CheckAnswer(Text("42"), Number(42)))
	assert.False(t, CheckAnswer(Number(1), IndexList{1}))
	assert.False(t, CheckAnswer(WordList{"a"}, Text("a")))
}

func TestCheckAnswer_Nil(t *testing.T) {
	assert.False(t, CheckAnswer(nil, Number(1)))
	assert.False(t, CheckAnswer(Number(1), nil))
	assert.False(t, CheckAnswer(nil, nil))
}
