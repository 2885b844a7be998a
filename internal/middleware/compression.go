// Package middleware provides HTTP middleware components for the image cache service.
package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Compression returns a middleware that gzips responses for clients that accept it.
// Image payloads are already compressed, so the paths in skip are served as is.
func Compression(skip ...string) gin.HandlerFunc {
	if len(skip) == 0 {
		return gzip.Gzip(gzip.DefaultCompression)
	}
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(skip))
}
