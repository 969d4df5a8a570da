package anticheat

import "sync"

// ══════════════════════════════════════════════════════════════════════════════
// VIOLATION MONITOR - НАКОПИТЕЛЬ НАРУШЕНИЙ СЕССИИ
// ══════════════════════════════════════════════════════════════════════════════

// MaxSessionViolations - порог принудительного завершения сессии.
const MaxSessionViolations = 5

// ViolationMonitor накапливает нарушения одной сессии из всех источников:
// вердикты детектора, сканирование паттернов, лимитер. При достижении
// порога сессия подлежит принудительному завершению.
type ViolationMonitor struct {
	mu         sync.Mutex
	violations []string
}

// NewViolationMonitor создаёт пустой накопитель.
func NewViolationMonitor() *ViolationMonitor {
	return &ViolationMonitor{}
}

// Record добавляет нарушения и сообщает, достигнут ли порог завершения.
func (m *ViolationMonitor) Record(violations ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.violations = append(m.violations, violations...)
	return len(m.violations) >= MaxSessionViolations
}

// Count возвращает накопленное число нарушений.
func (m *ViolationMonitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations)
}

// Exceeded сообщает, достигнут ли порог завершения.
func (m *ViolationMonitor) Exceeded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations) >= MaxSessionViolations
}

// Violations возвращает копию накопленного списка.
func (m *ViolationMonitor) Violations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.violations))
	copy(out, m.violations)
	return out
}
