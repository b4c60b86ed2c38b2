package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/renderer"
)

// ErrTimeout marks an encoder run that exceeded the configured wall
// clock. Retryable.
var ErrTimeout = errors.New("encoder: process timed out")

// ProcessError reports a non-zero encoder exit. Retryable with backoff;
// after the retry cap the stderr excerpt travels up for diagnosis.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("encoder: process exited with code %d", e.ExitCode)
}

// Result is the outcome of one render request.
type Result struct {
	Success    bool
	OutputPath string
	Duration   float64
	Err        error
}

// Invoker runs the external encoder with a compiled program. Each
// attempt renders into a private temp path next to the final output and
// renames on success, so a failed or cancelled render never leaves a
// partial file at the final path.
type Invoker struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	Logger  *slog.Logger
}

// NewInvoker creates an Invoker with default limits.
func NewInvoker(logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		Timeout: 120 * time.Second,
		Retries: 2,
		Backoff: 2 * time.Second,
		Logger:  logger,
	}
}

// Render executes the program, writing the final file to finalPath.
// Process failures and timeouts are retried with exponential backoff up
// to the retry cap; structural problems (unstartable binary) are not.
func (iv *Invoker) Render(ctx context.Context, prog *renderer.Program, finalPath string) Result {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return Result{OutputPath: finalPath, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= iv.Retries; attempt++ {
		if attempt > 0 {
			delay := iv.Backoff << (attempt - 1)
			iv.Logger.Warn("retrying render",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return Result{OutputPath: finalPath, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		err := iv.renderOnce(ctx, prog, finalPath)
		if err == nil {
			iv.Logger.Info("render complete", slog.String("output", finalPath))
			return Result{Success: true, OutputPath: finalPath}
		}
		lastErr = err
		if !Retryable(err) {
			break
		}
	}
	return Result{OutputPath: finalPath, Err: lastErr}
}

func (iv *Invoker) renderOnce(ctx context.Context, prog *renderer.Program, finalPath string) error {
	tempPath := tempRenderPath(finalPath)
	defer os.Remove(tempPath)

	runCtx := ctx
	var cancel context.CancelFunc
	if iv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, iv.Timeout)
		defer cancel()
	}

	argv := prog.ArgvWithOutput(tempPath)
	iv.Logger.Debug("starting encoder", slog.String("binary", argv[0]), slog.Int("args", len(argv)))

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdin = nil
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s", ErrTimeout, iv.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ProcessError{ExitCode: exitErr.ExitCode(), Stderr: stderrExcerpt(stderr.String())}
		}
		return fmt.Errorf("encoder: start: %w", err)
	}

	return os.Rename(tempPath, finalPath)
}

// Retryable reports whether the error class may be retried: only
// process failures and timeouts qualify. Structural errors indicate an
// invalid plan or assets and must be regenerated by the caller.
func Retryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var pe *ProcessError
	return errors.As(err, &pe)
}

// tempRenderPath builds a private scratch path in the output directory,
// unique per attempt so parallel requests never share files.
func tempRenderPath(finalPath string) string {
	dir := filepath.Dir(finalPath)
	base := filepath.Base(finalPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.part%s", stem, uuid.NewString()[:8], ext))
}

const stderrExcerptLimit = 2048

// stderrExcerpt keeps the tail of the encoder's stderr, which is where
// ffmpeg prints the actual failure.
func stderrExcerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrExcerptLimit {
		return s
	}
	return s[len(s)-stderrExcerptLimit:]
}
