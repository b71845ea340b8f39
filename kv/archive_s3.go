/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package kv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver uploads retired generation files to an S3-compatible bucket,
// built on the same AWS SDK config/credentials/client pattern this
// codebase's S3 persistence backend already uses, simplified: a retired
// generation is one finished file, so there is no segment/manifest
// bookkeeping to do (unlike a live, still-growing log).
type S3Archiver struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool

	client *s3.Client
}

func (a *S3Archiver) ensureClient(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if a.Region != "" {
		opts = append(opts, awsconfig.WithRegion(a.Region))
	}
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3 archiver: loading AWS config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if a.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(a.Endpoint) })
	}
	if a.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	a.client = s3.NewFromConfig(cfg, s3Opts...)
	return nil
}

func (a *S3Archiver) key(generation uint64) string {
	pfx := strings.TrimSuffix(a.Prefix, "/")
	if pfx == "" {
		return fmt.Sprintf("%d.log", generation)
	}
	return fmt.Sprintf("%s/%d.log", pfx, generation)
}

func (a *S3Archiver) Archive(ctx context.Context, generation uint64, path string) error {
	if err := a.ensureClient(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3 archiver: %w", err)
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(a.key(generation)),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("s3 archiver: uploading generation %d: %w", generation, err)
	}
	return nil
}
