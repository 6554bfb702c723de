package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"address-verify-server/storage"
	"address-verify-server/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxEvidenceFileBytes = 5 * 1024 * 1024
	maxEvidenceFiles     = 8
	maxAdditionalImages  = 5
)

var allowedEvidenceTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// EvidenceFiles groups the multipart image parts of one inspection
// submission. Any slot may be nil; required-slot enforcement happens on the
// record after upload, since an intake with no files is legitimate.
type EvidenceFiles struct {
	FrontView  *multipart.FileHeader
	StreetView *multipart.FileHeader
	GateView   *multipart.FileHeader
	Additional []*multipart.FileHeader
}

func (f EvidenceFiles) count() int {
	n := len(f.Additional)
	for _, h := range []*multipart.FileHeader{f.FrontView, f.StreetView, f.GateView} {
		if h != nil {
			n++
		}
	}
	return n
}

// EvidenceURLs holds the stable object-storage references produced by a
// successful upload pass.
type EvidenceURLs struct {
	FrontView  string
	StreetView string
	GateView   string
	Additional []string
}

// ObjectUploader persists one object and returns its public URL. Tests
// substitute a fake; production uses the S3 store.
type ObjectUploader func(ctx context.Context, key, contentType string, body io.Reader) (string, error)

type EvidencePipeline struct {
	upload ObjectUploader
	logger *zap.Logger
}

func NewEvidencePipeline() *EvidencePipeline {
	return &EvidencePipeline{upload: storage.UploadObject, logger: utils.Logger}
}

func NewEvidencePipelineWithUploader(upload ObjectUploader) *EvidencePipeline {
	return &EvidencePipeline{upload: upload, logger: utils.Logger}
}

// Process validates and uploads the submitted evidence. The three named slots
// upload in order; the supplementary batch fans out concurrently and joins
// before returning. Any single failure fails the whole call so no record is
// ever saved with a partial image set.
func (p *EvidencePipeline) Process(ctx context.Context, employeeID uint, files EvidenceFiles) (EvidenceURLs, error) {
	var urls EvidenceURLs

	if err := p.validate(files); err != nil {
		return urls, err
	}

	prefix := "verifications/" + strconv.FormatUint(uint64(employeeID), 10)

	named := []struct {
		slot   string
		header *multipart.FileHeader
		dest   *string
	}{
		{"front", files.FrontView, &urls.FrontView},
		{"street", files.StreetView, &urls.StreetView},
		{"gate", files.GateView, &urls.GateView},
	}
	for _, n := range named {
		if n.header == nil {
			continue
		}
		url, err := p.uploadOne(ctx, prefix, n.slot, n.header)
		if err != nil {
			return EvidenceURLs{}, err
		}
		*n.dest = url
	}

	if len(files.Additional) > 0 {
		results := make([]string, len(files.Additional))
		g, gctx := errgroup.WithContext(ctx)
		for i, header := range files.Additional {
			i, header := i, header
			g.Go(func() error {
				url, err := p.uploadOne(gctx, prefix, fmt.Sprintf("additional-%d", i), header)
				if err != nil {
					return err
				}
				results[i] = url
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return EvidenceURLs{}, err
		}
		urls.Additional = results
	}

	return urls, nil
}

func (p *EvidencePipeline) validate(files EvidenceFiles) error {
	if files.count() > maxEvidenceFiles {
		return NewValidationError(fmt.Sprintf("too many evidence files, maximum is %d", maxEvidenceFiles))
	}
	if len(files.Additional) > maxAdditionalImages {
		return NewValidationError(fmt.Sprintf("too many additional images, maximum is %d", maxAdditionalImages))
	}

	check := func(slot string, header *multipart.FileHeader) error {
		if header == nil {
			return nil
		}
		if header.Size > maxEvidenceFileBytes {
			return NewValidationError(fmt.Sprintf("%s image exceeds the 5MB size limit", slot))
		}
		contentType, err := sniffContentType(header)
		if err != nil {
			return NewValidationError(fmt.Sprintf("%s image could not be read", slot))
		}
		if _, ok := allowedEvidenceTypes[contentType]; !ok {
			return NewValidationError(fmt.Sprintf("%s image must be JPEG, PNG or WebP, got %s", slot, contentType))
		}
		return nil
	}

	if err := check("front view", files.FrontView); err != nil {
		return err
	}
	if err := check("street view", files.StreetView); err != nil {
		return err
	}
	if err := check("gate view", files.GateView); err != nil {
		return err
	}
	for i, header := range files.Additional {
		if err := check(fmt.Sprintf("additional image %d", i+1), header); err != nil {
			return err
		}
	}
	return nil
}

func (p *EvidencePipeline) uploadOne(ctx context.Context, prefix, slot string, header *multipart.FileHeader) (string, error) {
	contentType, err := sniffContentType(header)
	if err != nil {
		return "", NewEvidenceUploadError(slot + " image could not be read")
	}

	file, err := header.Open()
	if err != nil {
		return "", NewEvidenceUploadError(slot + " image could not be opened")
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s-%s.%s", prefix, slot, uuid.NewString(), allowedEvidenceTypes[contentType])
	url, err := p.upload(ctx, key, contentType, file)
	if err != nil {
		p.logger.Error("evidence upload failed",
			zap.String("slot", slot),
			zap.String("key", key),
			zap.Error(err),
		)
		return "", NewEvidenceUploadError("failed to store " + slot + " image")
	}
	return url, nil
}

// sniffContentType detects the real media type from the file's leading bytes
// rather than trusting the part's Content-Type header.
func sniffContentType(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
