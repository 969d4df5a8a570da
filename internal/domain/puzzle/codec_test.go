package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

func TestSolutionCodec_RoundTrip(t *testing.T) {
	solutions := []Solution{
		Text("the letter m"),
		Number(17),
		IndexList{2, 0, 1},
		WordList{"sun", "moon"},
		Grid{{0, 1, 0}, {1, 1, 1}},
	}

	for _, original := range solutions {
		data, err := MarshalSolution(original)
		assert.NoError(t, err)

		restored, err := UnmarshalSolution(data)
		assert.NoError(t, err)
		assert.Equal(t, original, restored)
	}
}

func TestMarshalSolution_Nil(t *testing.T) {
	_, err := MarshalSolution(nil)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestUnmarshalSolution_UnknownKind(t *testing.T) {
	_, err := UnmarshalSolution([]byte(`{"kind":"hologram","value":42}`))
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestUnmarshalSolution_MalformedJSON(t *testing.T) {
	_, err := UnmarshalSolution([]byte(`{"kind":`))
	assert.Error(t, err)
}

func TestUnmarshalAnswer(t *testing.T) {
	answer, err := UnmarshalAnswer([]byte(`{"kind":"number","value":7}`))
	assert.NoError(t, err)
	assert.Equal(t, Number(7), answer)

	_, err = UnmarshalAnswer([]byte(`{"kind":"nope","value":7}`))
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestPuzzleValidate(t *testing.T) {
	p := &Puzzle{
		ID:         "p-1",
		CategoryID: shared.CategoryID("logical-reasoning"),
		Kind:       KindLogic,
		Level:      1,
		Difficulty: shared.Difficulty(5),
		TimeLimit:  60,
		Solution:   Number(3),
	}
	assert.NoError(t, p.Validate())

	bad := *p
	bad.Level = 4
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLevel)

	bad = *p
	bad.TimeLimit = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTimeLimit)

	bad = *p
	bad.Solution = nil
	assert.ErrorIs(t, bad.Validate(), ErrNilSolution)

	bad = *p
	bad.Kind = Kind("karaoke")
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidPuzzleKind)
}
