package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
	"github.com/calipso-dynamics/notification-api/pkg/metrics"
)

const (
	defaultPermits        = 8
	defaultAcquireTimeout = 5 * time.Second
	defaultRenderTimeout  = 120 * time.Second

	defaultMarginMM = 10.0
	defaultFileName = "document.pdf"

	// Zoom is only passed to the converter when the scale meaningfully
	// differs from 1.0.
	scaleEpsilon = 1e-9
)

// Config tunes the renderer. Zero values fall back to the defaults above.
type Config struct {
	// BinaryPath is the HTML-to-PDF converter executable.
	BinaryPath string
	// OutputDir receives PDFs kept via store_local_pdf.
	OutputDir      string
	Permits        int64
	AcquireTimeout time.Duration
	RenderTimeout  time.Duration
}

// Service renders HTML to PDF through an external converter process,
// bounding the number of concurrent processes with a semaphore.
type Service struct {
	cfg     Config
	tmpDir  string
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
}

// NewService verifies the converter binary, creates the per-process temp
// directory and the local output directory.
func NewService(cfg Config, m *metrics.Metrics) (*Service, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "wkhtmltopdf"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join("files", "pdfs")
	}
	if cfg.Permits <= 0 {
		cfg.Permits = defaultPermits
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquireTimeout
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = defaultRenderTimeout
	}

	bin, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("pdf converter binary %q not found: %w", cfg.BinaryPath, err)
	}
	cfg.BinaryPath = bin

	tmpDir, err := os.MkdirTemp("", "pdf_service_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Service{
		cfg:     cfg,
		tmpDir:  tmpDir,
		sem:     semaphore.NewWeighted(cfg.Permits),
		metrics: m,
	}, nil
}

// Render converts req.HTML to PDF bytes. Permits and temp files are released
// on every exit path.
func (s *Service) Render(ctx context.Context, req model.PdfRequest) ([]byte, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()
	if err := s.sem.Acquire(acquireCtx, 1); err != nil {
		return nil, apperr.Busy("pdf renderer is at capacity, try again later")
	}
	defer s.sem.Release(1)

	s.metrics.RenderStarted()
	data, err := s.render(ctx, req)
	s.metrics.RenderFinished(renderOutcome(err))
	return data, err
}

func (s *Service) render(ctx context.Context, req model.PdfRequest) ([]byte, error) {
	start := time.Now()
	name := req.FileName
	if name == "" {
		name = defaultFileName
	}

	id := uuid.New().String()
	htmlPath := filepath.Join(s.tmpDir, fmt.Sprintf("input_%s.html", id))
	pdfPath := filepath.Join(s.tmpDir, fmt.Sprintf("output_%s.pdf", id))

	if err := os.WriteFile(htmlPath, []byte(req.HTML), 0o600); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to write temp html: %w", err))
	}
	defer os.Remove(htmlPath)
	defer os.Remove(pdfPath)

	args := buildArgs(req, htmlPath, pdfPath)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.cfg.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, apperr.Timeout(fmt.Sprintf("pdf render of %q exceeded %s", name, s.cfg.RenderTimeout))
	}
	if err != nil {
		return nil, apperr.Upstream(
			fmt.Sprintf("pdf converter failed for %q: %s", name, stderr.String()),
			err,
		)
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to read rendered pdf: %w", err))
	}

	if req.StoreLocalPDF {
		stored := filepath.Join(s.cfg.OutputDir, storedFileName(name, id))
		if err := os.WriteFile(stored, data, 0o644); err != nil {
			return nil, apperr.Internal(fmt.Errorf("failed to store local pdf: %w", err))
		}
		log.Info().Str("path", stored).Msg("stored local pdf copy")
	}

	log.Info().
		Str("file_name", name).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("pdf rendered")

	return data, nil
}

// buildArgs translates a PdfRequest into converter argv. Local file access
// and print media CSS are always enabled.
func buildArgs(req model.PdfRequest, htmlPath, pdfPath string) []string {
	args := []string{}

	orientation := "Portrait"
	if req.Orientation != nil && *req.Orientation == model.OrientationLandscape {
		orientation = "Landscape"
	}
	args = append(args, "--orientation", orientation)

	switch {
	case req.PageSizePreset != nil:
		args = append(args, "--page-size", string(*req.PageSizePreset))
	case req.CustomPageSize != nil:
		args = append(args,
			"--page-width", millimetres(req.CustomPageSize.Width),
			"--page-height", millimetres(req.CustomPageSize.Height),
		)
	default:
		args = append(args, "--page-size", string(model.PresetA4))
	}

	margins := model.PdfMargins{
		Top:    defaultMarginMM,
		Bottom: defaultMarginMM,
		Left:   defaultMarginMM,
		Right:  defaultMarginMM,
	}
	if req.Margins != nil {
		margins = *req.Margins
	}
	args = append(args,
		"-T", millimetres(margins.Top),
		"-B", millimetres(margins.Bottom),
		"-L", millimetres(margins.Left),
		"-R", millimetres(margins.Right),
	)

	if req.Scale != nil && math.Abs(*req.Scale-1.0) > scaleEpsilon {
		args = append(args, "--zoom", strconv.FormatFloat(*req.Scale, 'f', -1, 64))
	}

	args = append(args, "--enable-local-file-access", "--print-media-type")
	return append(args, htmlPath, pdfPath)
}

func millimetres(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

func storedFileName(name, id string) string {
	base := name
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return fmt.Sprintf("%s_%s.pdf", base, id)
}

func renderOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch apperr.Code(err) {
	case apperr.ErrTimeout:
		return "timeout"
	case apperr.ErrUpstream:
		return "render_failure"
	default:
		return "error"
	}
}

// Close removes the per-process temp directory.
func (s *Service) Close() error {
	return os.RemoveAll(s.tmpDir)
}
