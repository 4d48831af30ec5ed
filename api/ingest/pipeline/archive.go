package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Original uploads are archived to S3 when SALES_ARCHIVE_BUCKET is set, so a
// reviewer can always pull the source file behind a staged record. Archiving
// is best effort and never fails the upload.

func isArchiveEnabled() bool {
	return os.Getenv("SALES_ARCHIVE_BUCKET") != ""
}

func buildArchiveKey(teamID, batchID, fileName string) string {
	ts := time.Now().UTC().Format("20060102T150405")
	safe := strings.ReplaceAll(filepath.Base(fileName), " ", "_")
	return fmt.Sprintf("sales-uploads/%s/%s/%s_%s", teamID, batchID, ts, safe)
}

func archiveOriginal(ctx context.Context, teamID, batchID, fileName string, data []byte) {
	if !isArchiveEnabled() {
		return
	}
	bucket := os.Getenv("SALES_ARCHIVE_BUCKET")
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("[SALES-ARCHIVE] aws config load failed: %v", err)
		return
	}
	client := s3.NewFromConfig(cfg)
	key := buildArchiveKey(teamID, batchID, fileName)
	contentType := detectContentType(fileName, data)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		log.Printf("[SALES-ARCHIVE] upload of %s failed: %v", key, err)
		return
	}
	log.Printf("[SALES-ARCHIVE] archived %s to s3://%s/%s", fileName, bucket, key)
}

func detectContentType(fileName string, data []byte) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".pdf":
		return "application/pdf"
	}
	return http.DetectContentType(data)
}
