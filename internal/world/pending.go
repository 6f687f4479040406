package world

import (
	"sort"

	"voxelterrain/internal/block"
)

type pendingParam struct {
	pos   BlockPos
	value int16
}

// pendingQueue holds one chunk's deferred edits until the next build tick.
type pendingQueue struct {
	blocks []BlockEdit
	params []pendingParam
}

// QueueBlock defers a block placement to the next build tick. Queuing the
// same position and type twice keeps a single entry.
func (w *World) QueueBlock(pos BlockPos, t block.Type) error {
	q, err := w.queueFor(pos)
	if err != nil {
		return err
	}
	defer w.pendingMu.Unlock()
	for _, e := range q.blocks {
		if e.Pos == pos && e.Type == t {
			return nil
		}
	}
	q.blocks = append(q.blocks, BlockEdit{Pos: pos, Type: t})
	return nil
}

// QueueParameter defers a parameter write to the next build tick. A second
// write to a queued position is ignored unless override is set.
func (w *World) QueueParameter(pos BlockPos, v int16, override bool) error {
	q, err := w.queueFor(pos)
	if err != nil {
		return err
	}
	defer w.pendingMu.Unlock()
	for i, e := range q.params {
		if e.pos == pos {
			if override {
				q.params[i].value = v
			}
			return nil
		}
	}
	q.params = append(q.params, pendingParam{pos: pos, value: v})
	return nil
}

// queueFor returns the queue of the chunk holding pos with pendingMu locked.
// linkMu stays held until pendingMu is taken, so Unload never sees a queue
// created for a chunk it already removed.
func (w *World) queueFor(pos BlockPos) (*pendingQueue, error) {
	w.linkMu.RLock()
	defer w.linkMu.RUnlock()
	if _, _, err := w.locate(pos); err != nil {
		return nil, err
	}
	cp, _ := Locate(pos, w.opts.Dims.Size)

	w.pendingMu.Lock()
	q, ok := w.pending[cp]
	if !ok {
		q = &pendingQueue{}
		w.pending[cp] = q
	}
	return q, nil
}

// drainPending applies every queue in grid order: parameters one by one
// through the single-parameter path, then the block placements of a chunk as
// one bulk edit.
func (w *World) drainPending() []error {
	w.pendingMu.Lock()
	queues := w.pending
	w.pending = make(map[ChunkPos]*pendingQueue)
	w.pendingMu.Unlock()

	order := make([]ChunkPos, 0, len(queues))
	for cp := range queues {
		order = append(order, cp)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].less(order[j]) })

	var errs []error
	for _, cp := range order {
		q := queues[cp]
		for _, p := range q.params {
			if err := w.SetParameter(p.pos, p.value); err != nil {
				w.log.WithField("chunk", cp).Warnf("chunk %v pending parameter %v: %v", cp, p.pos, err)
				errs = append(errs, err)
			}
		}
		if len(q.blocks) == 0 {
			continue
		}
		if err := w.PlaceBlocks(q.blocks, Vanish); err != nil {
			w.log.WithField("chunk", cp).Warnf("chunk %v pending blocks: %v", cp, err)
			errs = append(errs, err)
		}
	}
	return errs
}
