// Package feed is the boundary to the scraping collaborator: it reads the
// finite per-run batch of raw postings the scraper dumped to disk.
package feed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/applyflow/applyflow/internal/posting"
)

// FromFile loads a batch of raw records from a JSON file. An empty file
// yields an empty batch; order within the batch is not significant.
func FromFile(path string) ([]posting.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open postings file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat postings file: %w", err)
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	var raws []posting.RawRecord
	if err := json.NewDecoder(file).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode postings file %q: %w", path, err)
	}

	return raws, nil
}
