package storage

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Evidence image store. Configured via AWS_REGION, S3_EVIDENCE_BUCKET and the
// standard AWS credential environment variables.

var (
	s3Uploader *s3manager.Uploader
	s3Bucket   string
)

func InitializeS3() {
	s3Bucket = os.Getenv("S3_EVIDENCE_BUCKET")
	if s3Bucket == "" {
		log.Println("Warning: S3_EVIDENCE_BUCKET not set, evidence uploads will fail")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	})
	if err != nil {
		log.Panic("error creating AWS session: " + err.Error())
	}

	s3Uploader = s3manager.NewUploader(sess)
}

// UploadObject streams one object to the evidence bucket and returns its
// public URL.
func UploadObject(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	out, err := s3Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s3Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return out.Location, nil
}
