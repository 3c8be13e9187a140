package deployer

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

const xrfkeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// XrfkeyLength is the length the service requires for anti-forgery keys.
const XrfkeyLength = 16

// RemoteSession is the connection context of one deploy sequence. It owns its
// own transport, so connections are never shared between sequences.
type RemoteSession struct {
	// ID identifies the session in logs.
	ID string

	base       *url.URL
	prefix     string
	user       string
	userHeader string
	xrfkey     string

	transport *http.Transport
	client    *http.Client
}

// NewSession establishes a session for one delete-then-upload sequence.
func NewSession(cfg Config) (*RemoteSession, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	xrfkey := cfg.Xrfkey
	if xrfkey == "" {
		if xrfkey, err = NewXrfkey(); err != nil {
			return nil, err
		}
	}

	tlsConfig, err := loadTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	userHeader := cfg.UserHeader
	if userHeader == "" {
		userHeader = "hdr-usr"
	}

	return &RemoteSession{
		ID:         uuid.NewString(),
		base:       base,
		prefix:     cfg.Prefix,
		user:       cfg.User,
		userHeader: userHeader,
		xrfkey:     xrfkey,
		transport:  transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Close releases the session's idle connections.
func (s *RemoteSession) Close() {
	s.transport.CloseIdleConnections()
}

// Delete removes the extension called name. A missing extension is not an
// error: the result has NotFound set.
func (s *RemoteSession) Delete(ctx context.Context, name string) (DeleteResult, error) {
	req, err := s.newRequest(ctx, http.MethodDelete, s.url("qrs", "extension", "name", name), nil)
	if err != nil {
		return DeleteResult{}, err
	}

	status, body, err := s.do(req)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete %s: %w", name, err)
	}

	result := DeleteResult{Status: status, Body: body}
	switch {
	case status >= 200 && status < 300:
		return result, nil
	case status == http.StatusNotFound:
		result.NotFound = true
		return result, nil
	default:
		return result, &StatusError{Op: "delete " + name, Status: status, Body: body}
	}
}

// Upload reads the archive into memory and posts it as a new extension. When
// progress is non-nil an upload progress bar is written to it.
func (s *RemoteSession) Upload(ctx context.Context, name, archivePath string, progress io.Writer) (UploadResult, error) {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to read archive: %w", err)
	}
	size := int64(len(data))

	var body io.Reader = bytes.NewReader(data)
	if progress != nil {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetDescription("📤 "+name),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(progress, "\n")
			}),
		)
		body = io.TeeReader(body, bar)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.url("qrs", "extension", "upload"), body)
	if err != nil {
		return UploadResult{}, err
	}
	req.ContentLength = size
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	status, respBody, err := s.do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", name, err)
	}

	result := UploadResult{Status: status, Bytes: size, Body: respBody}
	if status < 200 || status >= 300 {
		return result, &StatusError{Op: "upload " + name, Status: status, Body: respBody}
	}
	return result, nil
}

// url builds <base>/<prefix>/<elem...>?Xrfkey=<key>.
func (s *RemoteSession) url(elem ...string) string {
	if s.prefix != "" {
		elem = append([]string{s.prefix}, elem...)
	}
	u := s.base.JoinPath(elem...)
	u.RawQuery = url.Values{"Xrfkey": {s.xrfkey}}.Encode()
	return u.String()
}

func (s *RemoteSession) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-qlik-xrfkey", s.xrfkey)
	req.Header.Set(s.userHeader, s.user)
	req.Header.Set("content-type", "application/zip")
	req.Header.Set("cache-control", "no-cache")
	return req, nil
}

// do sends req and reads the whole response body.
func (s *RemoteSession) do(req *http.Request) (int, Body, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, Body{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, Body{}, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, parseBody(data), nil
}

// NewXrfkey returns a random anti-forgery key.
func NewXrfkey() (string, error) {
	key := make([]byte, XrfkeyLength)
	limit := big.NewInt(int64(len(xrfkeyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate xrfkey: %w", err)
		}
		key[i] = xrfkeyAlphabet[n.Int64()]
	}
	return string(key), nil
}

func loadTLS(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CA != "" {
		pem, err := os.ReadFile(cfg.CA)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CA)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.Cert != "" || cfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
