// Package puzzle содержит доменную модель головоломок CogniQuest.
package puzzle

import (
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SOLUTION - TAGGED UNION
// ══════════════════════════════════════════════════════════════════════════════

// Solution - эталонный ответ головоломки. Закрытое множество вариантов:
// текст, число, список индексов, список слов или сетка чисел.
// Проверка ответа сопоставляет вариант с присланным ответом того же вида;
// несовпадение видов - это просто неверный ответ, никогда не ошибка.
type Solution interface {
	// Matches сравнивает присланный ответ с эталоном.
	Matches(answer Answer) bool

	solutionKind() string
}

// Answer - присланный пользователем ответ. Те же варианты, что у Solution.
type Answer interface {
	answerKind() string
}

// ─────────────────────────────────────────────────────────────────────────────
// Text (загадки, языковые задачи)
// ─────────────────────────────────────────────────────────────────────────────

// Text - текстовый ответ. Сравнение без учёта регистра и краевых пробелов.
type Text string

func (t Text) solutionKind() string { return "text" }
func (t Text) answerKind() string   { return "text" }

// Matches реализует интерфейс Solution.
func (t Text) Matches(answer Answer) bool {
	a, ok := answer.(Text)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(t)))
}

// ─────────────────────────────────────────────────────────────────────────────
// Number (выбор варианта, счёт)
// ─────────────────────────────────────────────────────────────────────────────

// Number - числовой ответ. Сравнение - точное равенство.
type Number float64

func (n Number) solutionKind() string { return "number" }
func (n Number) answerKind() string   { return "number" }

// Matches реализует интерфейс Solution.
func (n Number) Matches(answer Answer) bool {
	a, ok := answer.(Number)
	if !ok {
		return false
	}
	return a == n
}

// ─────────────────────────────────────────────────────────────────────────────
// IndexList (последовательности, память)
// ─────────────────────────────────────────────────────────────────────────────

// IndexList - упорядоченный список числовых индексов.
// Сравнение поэлементное, порядок значим.
type IndexList []int

func (l IndexList) solutionKind() string { return "index_list" }
func (l IndexList) answerKind() string   { return "index_list" }

// Matches реализует интерфейс Solution.
func (l IndexList) Matches(answer Answer) bool {
	a, ok := answer.(IndexList)
	if !ok || len(a) != len(l) {
		return false
	}
	for i := range l {
		if a[i] != l[i] {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// WordList (вербальная беглость)
// ─────────────────────────────────────────────────────────────────────────────

// WordList - упорядоченный список слов. Каждое слово сравнивается
// без учёта регистра и краевых пробелов, порядок значим.
type WordList []string

func (w WordList) solutionKind() string { return "word_list" }
func (w WordList) answerKind() string   { return "word_list" }

// Matches реализует интерфейс Solution.
func (w WordList) Matches(answer Answer) bool {
	a, ok := answer.(WordList)
	if !ok || len(a) != len(w) {
		return false
	}
	for i := range w {
		if !strings.EqualFold(strings.TrimSpace(a[i]), strings.TrimSpace(w[i])) {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Grid (лабиринты, пространственные задачи)
// ─────────────────────────────────────────────────────────────────────────────

// Grid - двумерная сетка чисел (например, путь в лабиринте).
// Сравнение поэлементное по строкам, порядок значим.
type Grid [][]int

func (g Grid) solutionKind() string { return "grid" }
func (g Grid) answerKind() string   { return "grid" }

// Matches реализует интерфейс Solution.
func (g Grid) Matches(answer Answer) bool {
	a, ok := answer.(Grid)
	if !ok || len(a) != len(g) {
		return false
	}
	for i := range g {
		if len(a[i]) != len(g[i]) {
			return false
		}
		for j := range g[i] {
			if a[i][j] != g[i][j] {
				return false
			}
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// ANSWER CHECKING
// ══════════════════════════════════════════════════════════════════════════════

// CheckAnswer проверяет присланный ответ против эталона.
// Чистая функция: одинаковые аргументы всегда дают одинаковый результат.
// Любое несоответствие видов (nil, чужой вариант) - неверный ответ, не ошибка.
func CheckAnswer(answer Answer, solution Solution) bool {
	if answer == nil || solution == nil {
		return false
	}
	return solution.Matches(answer)
}
