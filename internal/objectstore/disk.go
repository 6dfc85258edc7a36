// Package objectstore hosts uploaded files and images and hands back the
// reference clients attach to messages.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sniffLen = 512

var (
	ErrTooLarge = errors.New("object too large")
	ErrEmpty    = errors.New("empty object")
)

// Stored describes an object after it was written.
type Stored struct {
	Attachment domain.Attachment
	MIME       string
	Size       int64
}

type Store interface {
	Put(ctx context.Context, r io.Reader, filename, mimeHint string) (*Stored, error)
}

// Disk writes objects under Dir and serves them from BaseURL.
type Disk struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

func NewDisk(dir, baseURL string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Disk{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}, nil
}

// Put stores the content of r. The kind is decided from the sniffed content
// type, falling back to mimeHint when sniffing is inconclusive.
func (d *Disk) Put(ctx context.Context, r io.Reader, filename, mimeHint string) (*Stored, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrEmpty
	}

	mtype := mimetype.Detect(head)
	mime := mtype.String()
	if mtype.Is("application/octet-stream") && mimeHint != "" {
		mime = mimeHint
	}

	name := uuid.NewString() + mtype.Extension()
	path := filepath.Join(d.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}

	src := io.MultiReader(bytes.NewReader(head), r)
	if d.MaxBytes > 0 {
		src = io.LimitReader(src, d.MaxBytes+1)
	}
	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && d.MaxBytes > 0 && size > d.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	display := filepath.Base(filename)
	if display == "." || display == string(filepath.Separator) {
		display = name
	}

	observability.GetLogger(ctx).Info("object stored",
		zap.String("name", name),
		zap.String("mime", mime),
		zap.Int64("size", size),
	)
	return &Stored{
		Attachment: domain.Attachment{
			URL:         d.BaseURL + "/" + name,
			Kind:        KindOf(mime),
			DisplayName: display,
		},
		MIME: mime,
		Size: size,
	}, nil
}

// KindOf maps a content type to the attachment kind.
func KindOf(mime string) domain.AttachmentKind {
	if strings.HasPrefix(mime, "image/") {
		return domain.AttachmentImage
	}
	return domain.AttachmentFile
}
