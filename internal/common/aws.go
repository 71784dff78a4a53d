// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package common holds cloud integrations shared by the commands.
package common

import (
	"context"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

const (
	defaultAWSRegion        = "us-east-1"
	defaultAWSClientRetries = 3
)

// NewAWSConfig creates and returns a new AWS configuration with default settings.
// It sets the default region and specifies the maximum number of retry attempts for AWS clients.
func NewAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(
		ctx,
		config.WithDefaultRegion(defaultAWSRegion),
		config.WithRetryMaxAttempts(defaultAWSClientRetries),
	)
}

// S3Archive writes callback archives to an S3 bucket.
type S3Archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Archive creates an archive writing objects under prefix in bucket.
func NewS3Archive(cfg aws.Config, bucket, prefix string) *S3Archive {
	client := s3.NewFromConfig(cfg)
	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// CheckBucket verifies that the bucket exists and is reachable.
func (a *S3Archive) CheckBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "NotFound", "NoSuchBucket":
				return errors.Errorf("bucket %s does not exist", a.bucket)
			case "Forbidden", "AccessDenied":
				return errors.Errorf("access to bucket %s denied", a.bucket)
			}
		}
		return errors.Wrapf(err, "failed to check bucket %s", a.bucket)
	}

	return nil
}

// UploadCallbackArchive stores body as the named object.
func (a *S3Archive) UploadCallbackArchive(ctx context.Context, name string, body io.Reader) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(path.Join(a.prefix, name)),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return errors.Wrapf(err, "failed to upload %s: %s", name, apiErr.ErrorCode())
		}
		return errors.Wrapf(err, "failed to upload %s", name)
	}

	return nil
}
