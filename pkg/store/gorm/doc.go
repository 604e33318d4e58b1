// Package gorm provides the GORM/PostgreSQL implementation of the record
// store defined in the parent store package.
//
// Username uniqueness among active records is enforced twice: by the
// partial unique index users_active_username_idx and by an existence check
// inside the insert transaction. Either one failing surfaces as
// store.ErrConflict.
package gorm
