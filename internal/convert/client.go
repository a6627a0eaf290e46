package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"optipress/internal/batch"
	"optipress/internal/config"
	"optipress/internal/fileutil"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client converts images by shelling out to the cwebp and avifenc encoders.
// Outputs are written into the staging directory first and renamed into place
// so readers never observe partial files.
type Client struct {
	webpBinary string
	avifBinary string
	stagingDir string
	timeout    time.Duration
	exec       Executor
}

// New constructs a converter client from configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		webpBinary: cfg.Conversion.WebPBinary,
		avifBinary: cfg.Conversion.AVIFBinary,
		stagingDir: cfg.Paths.StagingDir,
		timeout:    time.Duration(cfg.Conversion.ConvertTimeout) * time.Second,
		exec:       commandExecutor{},
	}
}

// NewWithOptions constructs a client with overrides applied.
func NewWithOptions(cfg *config.Config, opts ...Option) *Client {
	client := New(cfg)
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Convert encodes sourcePath into the requested format and returns the bytes
// reclaimed relative to the source. The output lands next to the source as
// "<name>.<format>". Outputs larger than the source are kept; the saving is
// floored at zero.
func (c *Client) Convert(ctx context.Context, sourcePath string, format batch.Format, quality int) (int64, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", batch.ErrSourceMissing, sourcePath)
		}
		return 0, fmt.Errorf("stat source: %w", err)
	}

	binary, args, err := c.command(sourcePath, format, quality)
	if err != nil {
		return 0, err
	}
	if _, err := exec.LookPath(binary); err != nil {
		return 0, fmt.Errorf("%w: encoder %q not found in PATH", batch.ErrConfiguration, binary)
	}

	if err := os.MkdirAll(c.stagingDir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure staging dir: %w", err)
	}
	tempPath := filepath.Join(c.stagingDir, uuid.NewString()+"."+string(format))
	defer os.Remove(tempPath)
	args = append(args, tempPath)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.exec.Run(runCtx, binary, args); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s after %s", batch.ErrTimeout, binary, c.timeout)
		}
		return 0, fmt.Errorf("%w: %s: %v", batch.ErrConversion, binary, err)
	}

	outInfo, err := os.Stat(tempPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s produced no output", batch.ErrConversion, binary)
	}

	finalPath := OutputPath(sourcePath, format)
	if err := fileutil.MoveFile(tempPath, finalPath); err != nil {
		return 0, fmt.Errorf("move output into place: %w", err)
	}

	saved := info.Size() - outInfo.Size()
	if saved < 0 {
		saved = 0
	}
	return saved, nil
}

func (c *Client) command(sourcePath string, format batch.Format, quality int) (string, []string, error) {
	switch format {
	case batch.FormatWebP:
		return c.webpBinary, []string{"-quiet", "-q", strconv.Itoa(quality), sourcePath, "-o"}, nil
	case batch.FormatAVIF:
		return c.avifBinary, []string{"-q", strconv.Itoa(quality), sourcePath}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", batch.ErrFormatDisabled, format)
	}
}

// OutputPath returns the converted-file path for a source and format.
func OutputPath(sourcePath string, format batch.Format) string {
	return sourcePath + "." + string(format)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		trimmed := output
		if len(trimmed) > 512 {
			trimmed = trimmed[:512]
		}
		return fmt.Errorf("%w: %s", err, trimmed)
	}
	return nil
}
