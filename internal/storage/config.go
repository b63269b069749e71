package storage

import "time"

// MinIOConfig holds MinIO connection and upload settings.
type MinIOConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	MaxUploadBytes int64
	PresignTTL     time.Duration
}

// Enabled reports whether an endpoint is configured.
func (c *MinIOConfig) Enabled() bool {
	return c != nil && c.Endpoint != ""
}
