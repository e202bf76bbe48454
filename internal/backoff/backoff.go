// Package backoff вычисляет задержки экспоненциального backoff с jitter.
// Функции чистые: источник случайности передается явно, что позволяет тестировать без сети и таймеров.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy параметры backoff
type Policy struct {
	Base   time.Duration // Base задержка первой повторной попытки
	Cap    time.Duration // Cap максимальная задержка
	Jitter float64       // Jitter доля случайного разброса в диапазоне [0, 1]
}

// DefaultPolicy возвращает параметры по умолчанию
func DefaultPolicy() Policy {
	return Policy{
		Base:   500 * time.Millisecond,
		Cap:    30 * time.Second,
		Jitter: 0.2,
	}
}

// Delay возвращает задержку перед попыткой attempt (attempt начинается с 0).
// rnd должен возвращать значение в [0, 1); nil означает отсутствие jitter.
// Результат: min(Cap, Base*2^attempt), умноженный на (1 - Jitter*rnd), то есть jitter
// только уменьшает задержку и никогда не выводит ее за Cap.
func Delay(p Policy, attempt int, rnd func() float64) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	// Защищаемся от переполнения при больших attempt
	exp := math.Pow(2, float64(attempt))
	d := float64(p.Base) * exp
	if p.Cap > 0 && (d > float64(p.Cap) || math.IsInf(d, 1)) {
		d = float64(p.Cap)
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if rnd != nil && jitter > 0 {
		d -= d * jitter * rnd()
	}

	return time.Duration(d)
}

// Next то же, что Delay, но с глобальным источником случайности
func (p Policy) Next(attempt int) time.Duration {
	return Delay(p, attempt, rand.Float64)
}
