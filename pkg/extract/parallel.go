package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type parallelParam struct {
	text    string
	d       Descriptor
	idx     int
	results []string
	wg      *sync.WaitGroup
}

// ExtractAllParallel evaluates descriptors on a worker pool of the given size.
// Results are written in descriptor order afterwards, so the returned map is
// identical to ExtractAll's, duplicate targets included.
func ExtractAllParallel(ctx context.Context, text string, ds []Descriptor, workers int) (map[string]string, error) {
	if err := ValidateAll(ds); err != nil {
		return nil, err
	}
	if workers <= 1 || len(ds) <= 1 {
		return ExtractAll(text, ds)
	}
	if workers > len(ds) {
		workers = len(ds)
	}

	results := make([]string, len(ds))
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(workers, func(args any) {
		p, ok := args.(*parallelParam)
		if !ok {
			panic("extract pool args type error")
		}
		defer p.wg.Done()
		p.results[p.idx], _ = Extract(p.text, p.d)
	})
	if err != nil {
		return nil, fmt.Errorf("create extract pool: %w", err)
	}
	defer pool.Release()

	for i, d := range ds {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		if err := pool.Invoke(&parallelParam{text: text, d: d, idx: i, results: results, wg: &wg}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit descriptor[%d]: %w", i, err)
		}
	}
	wg.Wait()

	out := make(map[string]string, len(ds))
	for i, d := range ds {
		out[d.Target] = results[i]
	}
	return out, nil
}
