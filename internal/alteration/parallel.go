package alteration

import (
	"runtime"
	"sync"
)

// WorkItem holds one mutation string ready for parsing.
type WorkItem struct {
	Seq   int
	Gene  *Gene
	Text  string
	Extra any // caller-specific data
}

// WorkResult holds the alterations parsed from a single work item.
type WorkResult struct {
	Seq         int
	Gene        *Gene
	Text        string
	Alterations []*Alteration
	Extra       any
}

// ParallelParse parses work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func ParallelParse(items <-chan WorkItem, separator string, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				alts := ParseMutationString(item.Text, separator)
				SetGene(alts, item.Gene)
				results <- WorkResult{
					Seq:         item.Seq,
					Gene:        item.Gene,
					Text:        item.Text,
					Alterations: alts,
					Extra:       item.Extra,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
