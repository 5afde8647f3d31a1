// Package awsconfig loads the AWS SDK configuration shared by the dynamodb store and the s3
// ciphertext offload.
package awsconfig

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options select the region and, for DynamoDB Local / MinIO / LocalStack, a custom endpoint.
type Options struct {
	Region      string
	EndpointURL string
}

// Load returns the default AWS config for opts.Region.
//
// When a custom endpoint is set and no access key is present in the environment, static dummy
// credentials are used so local emulators can be reached without an AWS profile.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}

	if opts.EndpointURL != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return cfg, nil
}
