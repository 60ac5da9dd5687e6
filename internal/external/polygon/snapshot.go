package polygon

import (
	"context"
	"fmt"
	"time"
)

// FetchOptionChain walks the paginated options chain snapshot for one
// underlying and returns the concatenation of every page's contracts.
//
// Each page after the first is requested with the next_url the provider
// returned, verbatim; the cursor is opaque and never reconstructed here.
// The walk soft-stops at the page ceiling (logged, not an error). A page
// that fails or reports a non-OK status aborts the fetch with no partial
// result.
func (c *Client) FetchOptionChain(ctx context.Context, underlying string) ([]ContractSnapshot, error) {
	requestURL := fmt.Sprintf("%s/v3/snapshot/options/%s?limit=250", c.baseURL, underlying)

	var contracts []ContractSnapshot
	pages := 0

	for requestURL != "" {
		if pages >= c.maxPages {
			c.logger.WithFields(map[string]interface{}{
				"underlying": underlying,
				"max_pages":  c.maxPages,
				"contracts":  len(contracts),
			}).Warn("Option chain pagination ceiling reached, truncating fetch")
			break
		}

		if pages > 0 {
			// Fixed pacing between page requests
			if err := c.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("pacing wait: %w", err)
			}
		}

		page, err := c.fetchChainPage(ctx, requestURL)
		if err != nil {
			return nil, fmt.Errorf("page %d for %s: %w", pages+1, underlying, err)
		}

		contracts = append(contracts, page.Results...)
		pages++
		requestURL = page.NextURL
	}

	c.logger.WithFields(map[string]interface{}{
		"underlying": underlying,
		"pages":      pages,
		"contracts":  len(contracts),
	}).Info("Option chain fetched")

	return contracts, nil
}

// fetchChainPage fetches and validates a single page.
func (c *Client) fetchChainPage(ctx context.Context, url string) (*ChainResponse, error) {
	var page ChainResponse
	if err := c.getJSON(ctx, url, &page); err != nil {
		return nil, err
	}

	if page.Status != "OK" {
		return nil, fmt.Errorf("status %q: %w", page.Status, ErrBadStatus)
	}

	return &page, nil
}

// UnderlyingPrice is the latest recorded price for an underlying.
type UnderlyingPrice struct {
	Symbol string
	Price  float64
	AsOf   time.Time
}

// FetchUnderlyingPrevClose returns the previous session close for the
// underlying. Tracked separately from the chain snapshot so option rows
// never carry a placeholder underlying price.
func (c *Client) FetchUnderlyingPrevClose(ctx context.Context, symbol string) (*UnderlyingPrice, error) {
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev", c.baseURL, symbol)

	var resp PrevCloseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("prev close for %s: %w", symbol, err)
	}

	if resp.Status != "OK" {
		return nil, fmt.Errorf("prev close for %s: status %q: %w", symbol, resp.Status, ErrBadStatus)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("prev close for %s: empty results", symbol)
	}

	bar := resp.Results[0]
	return &UnderlyingPrice{
		Symbol: symbol,
		Price:  bar.Close,
		AsOf:   time.UnixMilli(bar.Timestamp).UTC(),
	}, nil
}
