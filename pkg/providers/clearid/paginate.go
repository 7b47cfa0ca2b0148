package clearid

import (
	"context"
	"fmt"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// collectAll reads a skip/take listing until the declared total is reached.
// Items keep server order. maxPages > 0 caps the number of requests.
func collectAll[T any](ctx context.Context, take, maxPages int, fetch func(ctx context.Context, req PageRequest) (*Page[T], error)) ([]T, error) {
	page, err := fetch(ctx, PageRequest{Skip: 0, Take: take})
	if err != nil {
		return nil, err
	}

	// totalItems is remote input; the slice grows with the pages actually read.
	total := page.TotalItems
	items := make([]T, 0, len(page.Results))
	items = append(items, page.Results...)

	for pages := 1; len(items) < total; pages++ {
		if maxPages > 0 && pages >= maxPages {
			return nil, connector.ErrPagination(fmt.Sprintf("listing exceeded %d pages with %d of %d items read", maxPages, len(items), total)).
				WithConnector(ConnectorName)
		}
		if err := ctx.Err(); err != nil {
			return nil, connector.ErrConnectivity("listing cancelled").WithCause(err)
		}

		page, err = fetch(ctx, PageRequest{Skip: len(items), Take: take})
		if err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			return nil, connector.ErrPagination(fmt.Sprintf("empty page at offset %d before reaching %d items", len(items), total)).
				WithConnector(ConnectorName)
		}
		items = append(items, page.Results...)
	}

	return items, nil
}
