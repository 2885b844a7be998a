package service

import (
	"errors"

	"github.com/guttosm/pixie-cache/internal/repository"
)

var (
	// ErrInvalidURL is returned when the image URL cannot be parsed or is not http(s).
	ErrInvalidURL = errors.New("invalid image url")
	// ErrTransport is returned when the origin could not deliver a payload.
	ErrTransport = errors.New("image transport failed")
	// ErrDecode is returned when the payload is not an image byte stream.
	ErrDecode = errors.New("payload is not a valid image")
)

// Storage errors live with the disk tier; they are aliased here for errors.Is checks.
// They are logged by the coordinator and never surface to entry controllers.
var (
	ErrStorageWrite = repository.ErrStorageWrite
	ErrStorageRead  = repository.ErrStorageRead
	ErrInvalidKey   = repository.ErrInvalidKey
)

// ValidateKey reports whether key can be used as a cache key on every tier.
func ValidateKey(key string) error {
	return repository.ValidateKey(key)
}
