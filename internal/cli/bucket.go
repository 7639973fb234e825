package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objstore-policy-mgmt/internal/audit"
	"github.com/objstore-policy-mgmt/internal/policy"
	"github.com/objstore-policy-mgmt/internal/s3clnt"
)

// bucketOpts are native S3 connection settings; each falls back to the s3
// block of the settings file when the flag is not given.
type bucketOpts struct {
	endpoint  string
	accessKey string
	secretKey string
	region    string
	pathStyle bool
}

// newBucketCmd builds the bucket command group for native S3 bucket-policy
// operations.
func newBucketCmd() *cobra.Command {
	var bOpts bucketOpts

	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Read and write bucket policies through the native S3 API",
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&bOpts.endpoint, "endpoint", "", "S3 endpoint URI")
	pf.StringVar(&bOpts.accessKey, "access-key", "", "S3 access key; omit for anonymous access")
	pf.StringVar(&bOpts.secretKey, "secret-key", "", "S3 secret key")
	pf.StringVar(&bOpts.region, "region", "", "S3 signing region")
	pf.BoolVar(&bOpts.pathStyle, "path-style", false, "use path-style bucket addressing")

	getBucketCmd := &cobra.Command{
		Use:   "get <bucket>",
		Short: "Retrieve the existing policy for a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newBucketClient(cmd, &bOpts)
			if err != nil {
				return err
			}

			p, err := client.GetBucketPolicy(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), p.Serialize())
			return nil
		},
	}

	var policyFilepath string
	putBucketCmd := &cobra.Command{
		Use:   "put <bucket>",
		Short: "Write a policy to a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.ParseFile(policyFilepath)
			if err != nil {
				return err
			}

			client, err := newBucketClient(cmd, &bOpts)
			if err != nil {
				return err
			}

			return client.PutBucketPolicy(cmd.Context(), p, args[0])
		},
	}
	putBucketCmd.Flags().StringVarP(&policyFilepath, "policy-filepath", "p", "",
		"S3 policy file to send as an update")
	putBucketCmd.MarkFlagRequired("policy-filepath")

	cmd.AddCommand(getBucketCmd)
	cmd.AddCommand(putBucketCmd)
	return cmd
}

func newBucketClient(cmd *cobra.Command, bOpts *bucketOpts) (*s3clnt.Client, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, err
	}

	endpoint := bOpts.endpoint
	if endpoint == "" {
		endpoint = settings.S3.Endpoint
	}
	accessKey := bOpts.accessKey
	if accessKey == "" {
		accessKey = settings.S3.AccessKey
	}
	secretKey := bOpts.secretKey
	if secretKey == "" {
		secretKey = settings.S3.SecretKey
	}
	if endpoint == "" {
		return nil, &usageError{msg: "no S3 endpoint set"}
	}

	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	auditLogger, err := audit.NewLogger(&settings.Audit)
	if err != nil {
		return nil, err
	}

	clientOpts := []s3clnt.Option{
		s3clnt.WithLogger(log),
		s3clnt.WithAuditLogger(auditLogger),
	}
	if bOpts.region != "" {
		clientOpts = append(clientOpts, s3clnt.WithRegion(bOpts.region))
	}
	if bOpts.pathStyle || settings.S3.UsePathStyle {
		clientOpts = append(clientOpts, s3clnt.WithPathStyle())
	}

	return s3clnt.New(cmd.Context(), endpoint, accessKey, secretKey, clientOpts...)
}
