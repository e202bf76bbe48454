package realtime

import (
	"slices"

	"github.com/iudanet/fieldsync/internal/models"
)

// reorderBuffer выдает конверты строго по возрастанию SequenceID.
// Конверт с последовательным номером отдается сразу, забежавший вперед
// ждет недостающих. Номера не больше уже отданного отбрасываются как дубликаты.
type reorderBuffer struct {
	pending map[int64]*models.Envelope
	last    int64
	limit   int
}

func newReorderBuffer(last int64, limit int) *reorderBuffer {
	return &reorderBuffer{
		pending: make(map[int64]*models.Envelope),
		last:    last,
		limit:   limit,
	}
}

// push добавляет конверт и возвращает те, что можно отдать обработчику
func (b *reorderBuffer) push(env *models.Envelope) []*models.Envelope {
	if env.SequenceID <= b.last {
		return nil
	}
	b.pending[env.SequenceID] = env

	ready := b.drainContiguous()

	// Переполнение: дыра не заполнится, отдаем накопленное
	if len(b.pending) > b.limit {
		ready = append(ready, b.flush()...)
	}
	return ready
}

// flush отдает все накопленные конверты по порядку, пропуская дыры.
// Вызывается на heartbeat: к этому моменту сервер отправил все до головы лога.
func (b *reorderBuffer) flush() []*models.Envelope {
	if len(b.pending) == 0 {
		return nil
	}

	seqs := make([]int64, 0, len(b.pending))
	for seq := range b.pending {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)

	out := make([]*models.Envelope, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, b.pending[seq])
		delete(b.pending, seq)
	}
	b.last = seqs[len(seqs)-1]
	return out
}

func (b *reorderBuffer) drainContiguous() []*models.Envelope {
	var out []*models.Envelope
	for {
		env, ok := b.pending[b.last+1]
		if !ok {
			return out
		}
		delete(b.pending, b.last+1)
		b.last = env.SequenceID
		out = append(out, env)
	}
}

// buffered количество ожидающих конвертов
func (b *reorderBuffer) buffered() int {
	return len(b.pending)
}
