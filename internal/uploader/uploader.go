// Package uploader copies a finished run directory to object storage.
package uploader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Uploader publishes the files of a run directory.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// S3Config configures uploads to S3-compatible storage.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures uploads to Google Cloud Storage.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Config selects the upload targets; both may be enabled.
type Config struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// New builds one uploader per target in cfg, S3 first. Disabled targets are
// included and report Enabled() == false.
func New(cfg Config) ([]Uploader, error) {
	s3u, err := NewS3(cfg.S3)
	if err != nil {
		return nil, err
	}
	gcsu, err := NewGCS(cfg.GCS)
	if err != nil {
		return nil, err
	}
	return []Uploader{s3u, gcsu}, nil
}

// objectKey joins prefix, the run directory's base name and a file name into
// an object key. Empty or slash-padded prefixes are normalised.
func objectKey(prefix, dir, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return prefix + filepath.Base(dir) + "/" + name
}

// listFiles returns the regular files directly inside dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, name string) {
	if err := closer.Close(); err != nil {
		logrus.Warnf("close %s: %v", name, err)
	}
}
