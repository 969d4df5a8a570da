// Package anticheat реализует эвристическую проверку попыток решения:
// лимиты частоты, аномалии таймингов и подозрительные траектории очков.
// Это не криптографическая защита, а поведенческий фильтр: на доверенной
// границе обязана работать эквивалентная повторная валидация.
package anticheat

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// RING BUFFERS - ОКНА ИСТОРИИ ФИКСИРОВАННОЙ ЁМКОСТИ
// ══════════════════════════════════════════════════════════════════════════════

// scoreWindow хранит последние N скорректированных очков пользователя.
// Кольцевой буфер с бегущей суммой: вытеснение вычитает старое значение,
// поэтому среднее считается за O(1).
type scoreWindow struct {
	buf  []int
	head int
	size int
	sum  int
}

func newScoreWindow(capacity int) *scoreWindow {
	return &scoreWindow{buf: make([]int, capacity)}
}

// Push добавляет очки, вытесняя самое старое значение при переполнении.
func (w *scoreWindow) Push(score int) {
	if w.size == len(w.buf) {
		w.sum -= w.buf[w.head]
	} else {
		w.size++
	}
	w.buf[w.head] = score
	w.sum += score
	w.head = (w.head + 1) % len(w.buf)
}

// Len возвращает текущее число значений в окне.
func (w *scoreWindow) Len() int {
	return w.size
}

// Mean возвращает среднее значений окна. Пустое окно даёт 0.
func (w *scoreWindow) Mean() float64 {
	if w.size == 0 {
		return 0
	}
	return float64(w.sum) / float64(w.size)
}

// CountEqual возвращает число значений, в точности равных target.
func (w *scoreWindow) CountEqual(target int) int {
	count := 0
	for i := 0; i < w.size; i++ {
		if w.buf[(w.head-w.size+i+len(w.buf))%len(w.buf)] == target {
			count++
		}
	}
	return count
}

// timeWindow хранит последние N меток времени попыток пользователя.
type timeWindow struct {
	buf  []time.Time
	head int
	size int
}

func newTimeWindow(capacity int) *timeWindow {
	return &timeWindow{buf: make([]time.Time, capacity)}
}

// Push добавляет метку времени, вытесняя самую старую при переполнении.
func (w *timeWindow) Push(ts time.Time) {
	if w.size < len(w.buf) {
		w.size++
	}
	w.buf[w.head] = ts
	w.head = (w.head + 1) % len(w.buf)
}

// Len возвращает текущее число меток в окне.
func (w *timeWindow) Len() int {
	return w.size
}

// CountSince возвращает число меток в полуинтервале (cutoff, now].
func (w *timeWindow) CountSince(cutoff time.Time) int {
	count := 0
	for i := 0; i < w.size; i++ {
		if w.buf[(w.head-w.size+i+len(w.buf))%len(w.buf)].After(cutoff) {
			count++
		}
	}
	return count
}

// ForEach обходит метки от старой к новой.
func (w *timeWindow) ForEach(fn func(ts time.Time)) {
	for i := 0; i < w.size; i++ {
		fn(w.buf[(w.head-w.size+i+len(w.buf))%len(w.buf)])
	}
}
