// Package s3 loads the loan transaction CSV from an S3 object.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
	"riskdash/internal/dataset/csvfile"
)

// objectGetter is the subset of the S3 client used here.
type objectGetter interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

type Source struct {
	client objectGetter
	bucket string
	key    string
}

var _ dataset.Source = (*Source)(nil)

// Options select the object and the AWS credentials used to read it.
type Options struct {
	Bucket  string
	Key     string
	Profile string
	Region  string
}

// New loads the shared AWS configuration (optionally for a named profile) and
// builds an S3 source.
func New(ctx context.Context, opts Options) (*Source, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, errors.New("s3 source needs a bucket and a key")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config for profile %q: %w", opts.Profile, err)
	}
	return &Source{client: awss3.NewFromConfig(cfg), bucket: opts.Bucket, key: opts.Key}, nil
}

func (s *Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func (s *Source) Load(ctx context.Context) (core.Table, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return core.Table{}, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	tbl, err := csvfile.Parse(out.Body)
	if err != nil {
		return core.Table{}, fmt.Errorf("parse %s: %w", s.Name(), err)
	}
	return tbl, nil
}
