// Package upload sends attachment batches with bounded concurrency.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
)

// DefaultConcurrency is used when a pipeline is built with a non-positive limit.
const DefaultConcurrency = 3

// File is one attachment waiting to be sent. Open is called once, when the
// file's turn comes.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromPath describes a file on disk.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	name := filepath.Base(path)
	return File{
		Name:        name,
		ContentType: contentType(name),
		Size:        info.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromBytes describes an in-memory file.
func FromBytes(name string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType(name),
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Uploader stores a single attachment.
type Uploader interface {
	UploadAttachment(ctx context.Context, taskID int64, name, contentType string, body io.Reader) (*domain.Attachment, error)
}

// Item is the outcome for one file.
type Item struct {
	Name       string
	Attachment *domain.Attachment
	Err        error
}

// OK reports whether the file was stored.
func (i Item) OK() bool { return i.Err == nil }

// Report lists one Item per input file, in input order.
type Report struct {
	TaskID int64
	Items  []Item
}

// Succeeded returns the stored attachments in input order.
func (r Report) Succeeded() []domain.Attachment {
	var out []domain.Attachment
	for _, item := range r.Items {
		if item.OK() && item.Attachment != nil {
			out = append(out, *item.Attachment)
		}
	}
	return out
}

// Failed returns the items that were not stored.
func (r Report) Failed() []Item {
	var out []Item
	for _, item := range r.Items {
		if !item.OK() {
			out = append(out, item)
		}
	}
	return out
}

// Err joins every per-item failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, item := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", item.Name, item.Err))
	}
	return errors.Join(errs...)
}

// Pipeline uploads batches for one task at a time.
type Pipeline struct {
	uploader    Uploader
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewPipeline(uploader Uploader, concurrency int, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		uploader:    uploader,
		concurrency: concurrency,
		metrics:     m,
		logger:      logging.OrDefault(logger),
	}
}

// Run uploads every file, at most the configured number at a time. A failed
// file does not stop the others. Files not yet started when ctx is cancelled
// are reported with the context error.
func (p *Pipeline) Run(ctx context.Context, taskID int64, files []File) Report {
	report := Report{TaskID: taskID, Items: make([]Item, len(files))}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, f := range files {
		i, f := i, f
		report.Items[i].Name = f.Name
		g.Go(func() error {
			att, err := p.one(ctx, taskID, f)
			report.Items[i].Attachment = att
			report.Items[i].Err = err
			p.metrics.ObserveUpload(err == nil)
			return nil
		})
	}
	_ = g.Wait()

	if failed := len(report.Failed()); failed > 0 {
		p.logger.Warn("attachments not uploaded", "task", taskID, "failed", failed, "total", len(files))
	} else {
		p.logger.Info("attachments uploaded", "task", taskID, "total", len(files))
	}
	return report
}

func (p *Pipeline) one(ctx context.Context, taskID int64, f File) (*domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Open == nil {
		return nil, fmt.Errorf("no content for %s", f.Name)
	}
	body, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ct := f.ContentType
	if ct == "" {
		ct = contentType(f.Name)
	}
	return p.uploader.UploadAttachment(ctx, taskID, f.Name, ct, body)
}
