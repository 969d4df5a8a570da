package puzzle

import (
	"encoding/json"
	"fmt"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SOLUTION CODEC - JSON-ПРЕДСТАВЛЕНИЕ ВАРИАНТОВ
// ══════════════════════════════════════════════════════════════════════════════

// solutionEnvelope - wire-формат эталона и ответа: дискриминатор вида
// плюс значение.
type solutionEnvelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalSolution сериализует эталон в JSON для хранения.
func MarshalSolution(s Solution) ([]byte, error) {
	if s == nil {
		return nil, shared.ErrEmptyValue
	}

	value, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("puzzle: marshal solution value: %w", err)
	}

	return json.Marshal(solutionEnvelope{
		Kind:  s.solutionKind(),
		Value: value,
	})
}

// UnmarshalSolution восстанавливает эталон из JSON.
// Неизвестный вид - ошибка данных, не паника.
func UnmarshalSolution(data []byte) (Solution, error) {
	var env solutionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("puzzle: unmarshal solution envelope: %w", err)
	}

	switch env.Kind {
	case "text":
		var v Text
		return v, json.Unmarshal(env.Value, &v)
	case "number":
		var v Number
		return v, json.Unmarshal(env.Value, &v)
	case "index_list":
		var v IndexList
		return v, json.Unmarshal(env.Value, &v)
	case "word_list":
		var v WordList
		return v, json.Unmarshal(env.Value, &v)
	case "grid":
		var v Grid
		return v, json.Unmarshal(env.Value, &v)
	default:
		return nil, fmt.Errorf("puzzle: %w: solution kind %q", shared.ErrInvalidFormat, env.Kind)
	}
}

// UnmarshalAnswer восстанавливает присланный ответ из JSON.
// Варианты ответа совпадают с вариантами эталона.
func UnmarshalAnswer(data []byte) (Answer, error) {
	s, err := UnmarshalSolution(data)
	if err != nil {
		return nil, err
	}
	return s.(Answer), nil
}
