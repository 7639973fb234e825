// Package s3clnt is a thin wrapper over the native S3 bucket-policy API for
// endpoints that speak the standard protocol directly.
package s3clnt

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/objstore-policy-mgmt/internal/audit"
	"github.com/objstore-policy-mgmt/internal/errors"
	"github.com/objstore-policy-mgmt/internal/policy"
)

// defaultRegion is used when none is configured; custom endpoints ignore it
// beyond signing
const defaultRegion = "us-east-1"

// Client reads and writes bucket policies through the native S3 API
type Client struct {
	s3    *s3.Client
	log   *logrus.Logger
	audit audit.Logger
}

type options struct {
	region       string
	usePathStyle bool
	log          *logrus.Logger
	audit        audit.Logger
}

// Option configures a Client
type Option func(*options)

// WithRegion sets the signing region
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithPathStyle forces path-style bucket addressing, needed by most
// S3-compatible object stores
func WithPathStyle() Option {
	return func(o *options) { o.usePathStyle = true }
}

// WithLogger sets the diagnostic logger
func WithLogger(log *logrus.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithAuditLogger records every bucket-policy call to the given audit logger
func WithAuditLogger(a audit.Logger) Option {
	return func(o *options) { o.audit = a }
}

// New creates a client for the given endpoint. With an empty key, requests
// are unsigned (anonymous access); a key without a secret is a configuration
// error.
func New(ctx context.Context, endpoint, key, secret string, opts ...Option) (*Client, error) {
	o := &options{region: defaultRegion, audit: audit.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logrus.New()
		o.log.SetLevel(logrus.WarnLevel)
	}

	var credsProvider aws.CredentialsProvider
	switch {
	case key == "":
		credsProvider = aws.AnonymousCredentials{}
	case secret == "":
		return nil, errors.NewConfigError("key and secret must be set for non-anonymous access")
	default:
		credsProvider = credentials.NewStaticCredentialsProvider(key, secret, "")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(o.region),
		awsconfig.WithCredentialsProvider(credsProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	// LoadDefaultConfig wraps the provider in a credentials cache, which hides
	// the AnonymousCredentials type from the signer; set it directly so the
	// SDK skips signing for anonymous access.
	if _, anon := credsProvider.(aws.AnonymousCredentials); anon {
		awsCfg.Credentials = aws.AnonymousCredentials{}
	}

	s3Opts := []func(*s3.Options){}
	if endpoint != "" {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(endpoint)
			so.UsePathStyle = o.usePathStyle
		})
	}

	return &Client{
		s3:    s3.NewFromConfig(awsCfg, s3Opts...),
		log:   o.log,
		audit: o.audit,
	}, nil
}

// GetBucketPolicy reads the existing policy for a bucket
func (c *Client) GetBucketPolicy(ctx context.Context, bucket string) (*policy.Policy, error) {
	requestID := uuid.New().String()
	start := time.Now()
	c.log.WithField("bucket", bucket).Info("getting bucket policy")

	out, err := c.s3.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		reqErr := errors.NewRequestError("getting bucket policy for %q: %v", bucket, err)
		c.audit.Log(audit.NewBucketEntry(requestID, "GetBucketPolicy", bucket, time.Since(start), reqErr))
		return nil, reqErr
	}
	c.audit.Log(audit.NewBucketEntry(requestID, "GetBucketPolicy", bucket, time.Since(start), nil))

	return policy.ParseString(aws.ToString(out.Policy))
}

// PutBucketPolicy writes a policy to a bucket
func (c *Client) PutBucketPolicy(ctx context.Context, p *policy.Policy, bucket string) error {
	requestID := uuid.New().String()
	start := time.Now()
	c.log.WithField("bucket", bucket).Info("putting bucket policy")

	_, err := c.s3.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(p.Serialize()),
	})
	if err != nil {
		reqErr := errors.NewRequestError("putting bucket policy for %q: %v", bucket, err)
		c.audit.Log(audit.NewBucketEntry(requestID, "PutBucketPolicy", bucket, time.Since(start), reqErr))
		return reqErr
	}
	c.audit.Log(audit.NewBucketEntry(requestID, "PutBucketPolicy", bucket, time.Since(start), nil))

	return nil
}
