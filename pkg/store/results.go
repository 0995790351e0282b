package store

import (
	"followsync/pkg/models"
)

// Results maps account ids to their most recent record. Keys keep the order
// in which they were first seen so exports are stable across runs.
type Results struct {
	records map[models.AccountID]*models.ProfileRecord
	order   []models.AccountID
}

// NewResults creates an empty result set
func NewResults() *Results {
	return &Results{records: make(map[models.AccountID]*models.ProfileRecord)}
}

// Put stores rec under its account id, replacing any previous record
func (r *Results) Put(rec *models.ProfileRecord) {
	if _, exists := r.records[rec.AccountID]; !exists {
		r.order = append(r.order, rec.AccountID)
	}
	r.records[rec.AccountID] = rec
}

// Get returns the record for id, or nil
func (r *Results) Get(id models.AccountID) *models.ProfileRecord {
	return r.records[id]
}

// Has reports whether id has a record
func (r *Results) Has(id models.AccountID) bool {
	_, ok := r.records[id]
	return ok
}

// Len returns the number of accounts with a record
func (r *Results) Len() int {
	return len(r.order)
}

// Keys returns account ids in first-seen order
func (r *Results) Keys() []models.AccountID {
	keys := make([]models.AccountID, len(r.order))
	copy(keys, r.order)
	return keys
}

// Records returns the records in first-seen key order
func (r *Results) Records() []*models.ProfileRecord {
	out := make([]*models.ProfileRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}
