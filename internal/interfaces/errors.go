package interfaces

import "errors"

// ErrNotFound is returned when a record does not exist. Handlers map it to
// 404; the execution subsystems must surface it synchronously, before any
// queue or file mutation happens.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique field (name, slug, url) collides
// with an existing record.
var ErrDuplicate = errors.New("duplicate record")
