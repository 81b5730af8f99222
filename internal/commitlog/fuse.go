package commitlog

import (
	"container/heap"
	"iter"
)

// Source is one repository's ordered record sequence plus the prefix that
// disambiguates its paths in the fused stream.
type Source struct {
	Prefix  string
	Records iter.Seq2[Record, error]
}

// Fuse merges already-ordered sources by timestamp. Equal timestamps are
// ordered by source index and then by position within the source, which
// makes the output a deterministic total order. Each source is pulled lazily
// so only one pending record per source is held at a time.
//
// The first error from any source terminates the fused sequence.
func Fuse(sources []Source) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if len(sources) == 0 {
			return
		}
		pulls := make([]func() (Record, error, bool), len(sources))
		stops := make([]func(), len(sources))
		for i, src := range sources {
			if src.Records == nil {
				pulls[i] = func() (Record, error, bool) { return Record{}, nil, false }
				stops[i] = func() {}
				continue
			}
			pulls[i], stops[i] = iter.Pull2(src.Records)
		}
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()

		h := make(mergeHeap, 0, len(sources))
		var seq uint64
		advance := func(idx int) error {
			rec, err, ok := pulls[idx]()
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
			if prefix := sources[idx].Prefix; prefix != "" {
				rec.PathPrefix = prefix
			}
			heap.Push(&h, mergeItem{rec: rec, source: idx, seq: seq})
			seq++
			return nil
		}

		for i := range sources {
			if err := advance(i); err != nil {
				yield(Record{}, err)
				return
			}
		}
		for h.Len() > 0 {
			item := heap.Pop(&h).(mergeItem)
			if !yield(item.rec, nil) {
				return
			}
			if err := advance(item.source); err != nil {
				yield(Record{}, err)
				return
			}
		}
	}
}

type mergeItem struct {
	rec    Record
	source int
	seq    uint64
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.rec.Timestamp != b.rec.Timestamp {
		return a.rec.Timestamp < b.rec.Timestamp
	}
	if a.source != b.source {
		return a.source < b.source
	}
	return a.seq < b.seq
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
