package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dosanma1/chartpack/internal/chart"
)

// QRSDeployer replaces an extension on the repository service: it deletes the
// existing extension and, only if that succeeded, uploads the new archive.
type QRSDeployer struct {
	config Config
	layout chart.Layout
	logger *slog.Logger

	// Progress receives an upload progress bar when set.
	Progress io.Writer
}

// NewQRSDeployer creates a new repository service deployer
func NewQRSDeployer(cfg Config, layout chart.Layout, logger *slog.Logger) *QRSDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QRSDeployer{
		config: cfg,
		layout: layout,
		logger: logger.With("component", "deployer"),
	}
}

// Name returns the deployer identifier
func (d *QRSDeployer) Name() string {
	return "qrs"
}

// Deploy runs one delete-then-upload sequence in a fresh session.
func (d *QRSDeployer) Deploy(ctx context.Context, ev chart.BuildEvent) error {
	name := ev.Request.Name

	session, err := NewSession(d.config)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	logger := d.logger.With("chart", name, "session", session.ID, "seq", ev.Seq)
	start := time.Now()

	deleted, err := session.Delete(ctx, name)
	if err != nil {
		logger.Error("delete failed", "error", err)
		return err
	}
	if deleted.NotFound {
		logger.Info("nothing to delete", "status", deleted.Status)
	} else {
		logger.Info("deleted", "status", deleted.Status)
	}

	uploaded, err := session.Upload(ctx, name, d.layout.ArchivePath(name), d.Progress)
	if err != nil {
		logger.Error("upload failed", "error", err)
		return err
	}

	logger.Info("uploaded",
		"status", uploaded.Status,
		"bytes", uploaded.Bytes,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	if uploaded.Body.IsJSON() {
		logger.Debug("upload response", "body", uploaded.Body.String())
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Describe renders a short human readable outcome for err.
func Describe(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	if errors.As(err, &se) {
		op, _, _ := strings.Cut(se.Op, " ")
		return fmt.Sprintf("%s rejected with %d", op, se.Status)
	}
	return err.Error()
}
