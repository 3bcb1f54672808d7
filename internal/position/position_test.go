package position_test

import (
	"testing"

	"teamboard/internal/position"

	"github.com/stretchr/testify/assert"
)

func TestAppend_EmptyPartition(t *testing.T) {
	// Пустая колонка: первый тикет получает позицию 1
	assert.Equal(t, 1, position.Append(0))
}

func TestAppend_SequentialCreates(t *testing.T) {
	// Последовательные создания дают строго возрастающие позиции
	max := 0
	for i := 1; i <= 10; i++ {
		next := position.Append(max)
		assert.Equal(t, i, next)
		assert.Greater(t, next, max)
		max = next
	}
}

func TestAppend_ConcurrentTieIsAccepted(t *testing.T) {
	// Два конкурентных создания видят один и тот же максимум —
	// обе позиции совпадают, и это не ошибка
	a := position.Append(3)
	b := position.Append(3)
	assert.Equal(t, a, b)
	assert.Equal(t, 4, a)
}

func TestAppend_NegativeMaxTreatedAsEmpty(t *testing.T) {
	assert.Equal(t, 1, position.Append(-5))
}

func TestClamp(t *testing.T) {
	// Индекс назначения зажимается в пределы [1, count+1]
	assert.Equal(t, 1, position.Clamp(0, 5))
	assert.Equal(t, 1, position.Clamp(-3, 5))
	assert.Equal(t, 3, position.Clamp(3, 5))
	assert.Equal(t, 6, position.Clamp(9, 5))
	assert.Equal(t, 1, position.Clamp(1, 0))
}
