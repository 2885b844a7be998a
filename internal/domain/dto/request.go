// Package dto defines Data Transfer Objects for HTTP request and response handling.
//
// DTOs are used to decouple the HTTP layer from the domain model,
// providing validation and serialization for API communication.
package dto

import "github.com/guttosm/pixie-cache/internal/domain/model"

// ImageRequest identifies one image by origin URL and cache key (query parameters).
type ImageRequest struct {
	URL string `form:"url"`
	Key string `form:"key"`
}

// Validate checks that both parameters are present.
func (r *ImageRequest) Validate() error {
	if r.Key == "" {
		return ErrMissingKey
	}
	if r.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// ConfigureDiskRequest switches the cache to the disk tier.
type ConfigureDiskRequest struct {
	DirectoryName string `json:"directory_name" binding:"required"`
	// ImageFormat is "jpeg" or "png". Defaults to jpeg.
	ImageFormat string `json:"image_format"`
}

// Format parses ImageFormat.
func (r *ConfigureDiskRequest) Format() (model.ImageFormat, error) {
	if r.ImageFormat == "" {
		return model.FormatJPEG, nil
	}
	return model.ParseImageFormat(r.ImageFormat)
}

// Validate performs custom validation on the request.
func (r *ConfigureDiskRequest) Validate() error {
	if r.DirectoryName == "" {
		return ErrMissingDirectory
	}
	if _, err := r.Format(); err != nil {
		return &ValidationError{Field: "image_format", Message: "must be jpeg or png"}
	}
	return nil
}

// ConfigureMemoryRequest switches the cache to the memory tier.
type ConfigureMemoryRequest struct {
	LimitMB int `json:"limit_mb" binding:"required,gt=0,lte=1048576"`
	// CountLimit optionally changes the maximum number of entries.
	CountLimit *int `json:"count_limit,omitempty"`
}

// Validate performs custom validation on the request.
func (r *ConfigureMemoryRequest) Validate() error {
	if r.LimitMB <= 0 {
		return ErrInvalidLimit
	}
	if r.LimitMB > model.MaxMemoryLimitMB {
		return ErrLimitTooLarge
	}
	if r.CountLimit != nil && *r.CountLimit <= 0 {
		return &ValidationError{Field: "count_limit", Message: "must be a positive integer"}
	}
	return nil
}

// LoggingRequest toggles informational cache diagnostics.
type LoggingRequest struct {
	Debug *bool `json:"debug" binding:"required"`
}

// Validate performs custom validation on the request.
func (r *LoggingRequest) Validate() error {
	if r.Debug == nil {
		return &ValidationError{Field: "debug", Message: "is required"}
	}
	return nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

var (
	// ErrMissingKey is returned when the cache key is absent.
	ErrMissingKey = &ValidationError{Field: "key", Message: "is required"}
	// ErrMissingURL is returned when the image url is absent.
	ErrMissingURL = &ValidationError{Field: "url", Message: "is required"}
	// ErrMissingDirectory is returned when the directory name is absent.
	ErrMissingDirectory = &ValidationError{Field: "directory_name", Message: "is required"}
	// ErrInvalidLimit is returned when limit_mb is not positive.
	ErrInvalidLimit = &ValidationError{Field: "limit_mb", Message: "must be a positive integer"}
	// ErrLimitTooLarge is returned when limit_mb exceeds model.MaxMemoryLimitMB.
	ErrLimitTooLarge = &ValidationError{Field: "limit_mb", Message: "must not exceed 1048576"}
)

// Error returns the error message for ValidationError.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
