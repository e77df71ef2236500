package exact

import (
	"context"
	"sort"
	"strings"
)

// Exploration samples stay small: a handful of rows by default, and a hard
// cap regardless of what the caller asks for.
const (
	exploreDefaultTop = 5
	exploreTopCap     = 25
)

// Explore fetches a sample of raw records from any endpoint and reports the
// field names found, so callers can discover an endpoint's shape before
// writing selects and filters. Raw records are returned as-is here; this is
// the one place where untyped data crosses the boundary deliberately.
func (c *Client) Explore(ctx context.Context, endpoint string, division, top int, selectFields []string, filter string) (*ExplorationResult, error) {
	if top <= 0 {
		top = exploreDefaultTop
	}
	if top > exploreTopCap {
		top = exploreTopCap
	}
	if division == 0 {
		current, err := c.CurrentDivision(ctx)
		if err != nil {
			return nil, err
		}
		division = current
	}

	records, err := c.Get(ctx, division, endpoint, QuerySpec{
		Select: selectFields,
		Filter: filter,
		Top:    top,
	})
	if err != nil {
		return nil, err
	}

	var fields []string
	if len(records) > 0 {
		for key := range records[0] {
			if strings.HasPrefix(key, "__") {
				continue
			}
			fields = append(fields, key)
		}
		sort.Strings(fields)
	}

	return &ExplorationResult{
		Endpoint:        endpoint,
		Division:        division,
		Count:           len(records),
		Data:            records,
		AvailableFields: fields,
	}, nil
}
