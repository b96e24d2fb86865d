package store

// pruneFloor is the minimum number of rows removed per prune pass; the row
// estimate from mean row size is too coarse to trust for small batches.
const pruneFloor = 100

// pruneBudget estimates how many oldest rows must go to bring the database
// under maxBytes × keepRatio. Returns 0 when no prune is needed.
func (s *Store) pruneBudget(maxBytes int64, keepRatio float64) (int64, error) {
	currentSize, err := s.SizeBytes()
	if err != nil {
		return 0, err
	}
	if currentSize <= maxBytes {
		return 0, nil
	}

	var count int64
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM items"); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	avgItemSize := currentSize / count
	if avgItemSize == 0 {
		return 0, nil
	}
	floor := int64(s.pruneFloor)
	if floor <= 0 {
		floor = pruneFloor
	}
	targetSize := int64(float64(maxBytes) * keepRatio)
	toDelete := (currentSize - targetSize) / avgItemSize
	if toDelete < floor {
		toDelete = floor
	}
	return toDelete, nil
}

// PrunableIDs enumerates the oldest ids a prune would remove, so the index
// can delete matching postings before the rows disappear.
func (s *Store) PrunableIDs(maxBytes int64, keepRatio float64) ([]int64, error) {
	toDelete, err := s.pruneBudget(maxBytes, keepRatio)
	if err != nil || toDelete == 0 {
		return nil, err
	}
	var ids []int64
	if err := s.db.Select(&ids,
		"SELECT id FROM items ORDER BY timestamp ASC, id ASC LIMIT ?", toDelete,
	); err != nil {
		return nil, err
	}
	return ids, nil
}

// PruneToSize drops the oldest items until the size estimate falls below
// maxBytes × keepRatio. Returns the number of rows removed.
func (s *Store) PruneToSize(maxBytes int64, keepRatio float64) (int64, error) {
	toDelete, err := s.pruneBudget(maxBytes, keepRatio)
	if err != nil || toDelete == 0 {
		return 0, err
	}
	res, err := s.db.Exec(
		"DELETE FROM items WHERE id IN (SELECT id FROM items ORDER BY timestamp ASC, id ASC LIMIT ?)",
		toDelete,
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return toDelete, nil
	}
	return affected, nil
}
