package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/sift/pkg/formatting"
	"github.com/JaimeStill/sift/pkg/openapi"
	"github.com/JaimeStill/sift/pkg/pagination"
)

const (
	EnvAPIBasePath      = "SIFT_API_BASE_PATH"
	EnvAPIMaxUploadSize = "SIFT_API_MAX_UPLOAD_SIZE"
)

var openapiEnv = &openapi.ConfigEnv{
	Title:       "SIFT_OPENAPI_TITLE",
	Description: "SIFT_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SIFT_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SIFT_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, upload, and pagination settings.
type APIConfig struct {
	BasePath      string            `toml:"base_path"`
	MaxUploadSize string            `toml:"max_upload_size"`
	Pagination    pagination.Config `toml:"pagination"`
	OpenAPI       openapi.Config    `toml:"openapi"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes. Finalize guarantees it
// parses.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxUploadSize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested pagination and OpenAPI configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *APIConfig) validate() error {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size < 1 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
