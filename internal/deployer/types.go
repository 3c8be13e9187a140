package deployer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dosanma1/chartpack/internal/chart"
)

// Deployer is the interface that all deployers must implement
type Deployer interface {
	// Deploy replaces the remote copy of ev's chart with the local archive
	Deploy(ctx context.Context, ev chart.BuildEvent) error

	// Name returns the deployer name (e.g., "qrs")
	Name() string
}

// Config describes the remote management service.
type Config struct {
	// BaseURL is the scheme and host of the service, e.g. https://qlik.example.com.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Prefix is the virtual proxy prefix placed before /qrs (default "hdr").
	Prefix string `yaml:"prefix" env:"PREFIX"`
	// User is sent in the user identity header.
	User string `yaml:"user" env:"USER"`
	// UserHeader is the name of the user identity header (default "hdr-usr").
	UserHeader string `yaml:"user_header" env:"USER_HEADER"`
	// Xrfkey is the anti-forgery key. A random key is generated per session when empty.
	Xrfkey string `yaml:"xrfkey" env:"XRFKEY"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// TLS configures client certificates for the service.
	TLS TLSConfig `yaml:"tls" envPrefix:"TLS_"`
}

// TLSConfig holds PEM file paths for mutual TLS.
type TLSConfig struct {
	CA                 string `yaml:"ca" env:"CA"`
	Cert               string `yaml:"cert" env:"CERT"`
	Key                string `yaml:"key" env:"KEY"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
}

// Body is a response body, decoded as JSON when possible.
type Body struct {
	Raw  []byte
	JSON any
}

func parseBody(data []byte) Body {
	body := Body{Raw: data}
	var v any
	if len(data) > 0 && json.Unmarshal(data, &v) == nil {
		body.JSON = v
	}
	return body
}

// IsJSON reports whether the body was valid JSON.
func (b Body) IsJSON() bool {
	return b.JSON != nil
}

func (b Body) String() string {
	s := strings.TrimSpace(string(b.Raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// DeleteResult is the outcome of deleting the remote extension.
type DeleteResult struct {
	Status int
	// NotFound is set when there was no extension to delete.
	NotFound bool
	Body     Body
}

// UploadResult is the outcome of uploading the archive.
type UploadResult struct {
	Status int
	// Bytes is the number of archive bytes sent.
	Bytes int64
	Body  Body
}

// StatusError reports an unexpected HTTP status from the service.
type StatusError struct {
	Op     string
	Status int
	Body   Body
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.Status, http.StatusText(e.Status))
	if body := e.Body.String(); body != "" {
		msg += ": " + body
	}
	return msg
}
