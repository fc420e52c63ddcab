package db

import (
	"context"
	"fmt"
	"sort"
)

// CollectionStats returns the number of documents in every collection.
func (db *DB) CollectionStats(ctx context.Context) (map[string]int, error) {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make(map[string]int, len(names))
	for _, name := range names {
		var count int
		if err := db.conn.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = count
	}
	return stats, nil
}
