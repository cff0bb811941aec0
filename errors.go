package keeper

import "errors"

var (
	// ErrAccessDenied is returned when the identity lacks permission
	// for the target records.
	ErrAccessDenied = errors.New("keeper: access denied")

	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.New("keeper: invalid request")

	// ErrRecordNotFound is returned when target records do not exist.
	ErrRecordNotFound = errors.New("keeper: record not found")

	// ErrRecordExists is returned when a uniqueness probe matches an
	// existing document.
	ErrRecordExists = errors.New("keeper: record exists")

	// ErrSubItems is returned when dependent records block a deletion.
	ErrSubItems = errors.New("keeper: dependent records exist")

	// ErrAdminRequired is returned when a filter-wide mutation or bulk
	// load is attempted without admin rights.
	ErrAdminRequired = errors.New("keeper: admin rights required")
)
