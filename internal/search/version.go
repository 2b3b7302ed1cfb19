package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// IndexVersion tracks the current mapping version.
// Increment this whenever the content mapping changes.
// v1: initial, v2: lowercase normalizer on category and tags
const IndexVersion = 2

// CheckIndexVersion reports whether the index is missing or was built by an
// older mapping and needs a rebuild
func (c *Client) CheckIndexVersion(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithIndex(c.index),
		c.es.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to get index mapping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return true, nil
		}
		return false, fmt.Errorf("error getting index mapping: %s", res.Status())
	}

	var mappingResp map[string]struct {
		Mappings struct {
			Meta struct {
				Version int `json:"version"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mappingResp); err != nil {
		// unreadable mapping is treated as stale
		return true, nil
	}

	entry, ok := mappingResp[c.index]
	if !ok {
		return true, nil
	}
	return entry.Mappings.Meta.Version < IndexVersion, nil
}
