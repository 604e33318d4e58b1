// Package store defines the durable record store used by the identity
// resolver.
//
// The RecordStore interface is deliberately small: lookups by field
// equality, a conditional insert and a merge update. Records are never
// hard-deleted; deactivation is a merge that clears IsActive.
//
// # Available Stores
//
//   - gorm.RecordStore: PostgreSQL through GORM (production)
//   - memory.RecordStore: process-local map (development and tests)
//
// # Usage
//
//	records := gorm.NewRecordStore(db)
//	rec, err := records.FindOne(ctx, store.Filter{Username: "alice", ActiveOnly: true})
//	if err != nil {
//	    return err
//	}
//	if rec == nil {
//	    // no such account
//	}
package store
