package scan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// fanOut reads pages in windows of req.Workers concurrent requests and yields
// each window in page order. At most Workers pages are buffered at a time.
//
// The scan ends at the first empty or short page of a window. Any non-empty
// page after a short one in the same window fails the scan with ErrShortPage:
// the store is capping responses below the page size and the result would
// otherwise be silently incomplete.
func (s *Scanner) fanOut(ctx context.Context, yield func(store.Row, error) bool) {
	workers := s.req.Workers

	for first := 0; ; first += workers {
		window, err := s.fetchWindow(ctx, first, workers)
		if err != nil {
			yield(nil, err)

			return
		}

		for i, batch := range window {
			if !s.emit(batch, yield) {
				return
			}

			if len(batch) == s.req.PageSize {
				continue
			}

			for j := i + 1; j < len(window); j++ {
				if len(window[j]) > 0 {
					yield(nil, fmt.Errorf("%w: %s page %d has %d rows, page %d has %d",
						ErrShortPage, s.req.Collection, first+i, len(batch), first+j, len(window[j])))

					return
				}
			}

			return
		}
	}
}

func (s *Scanner) fetchWindow(ctx context.Context, first, size int) ([][]store.Row, error) {
	window := make([][]store.Row, size)

	group, groupCtx := errgroup.WithContext(ctx)

	for i := range size {
		group.Go(func() error {
			batch, err := s.fetch(groupCtx, first+i)
			if err != nil {
				return err
			}

			window[i] = batch

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return window, nil
}
