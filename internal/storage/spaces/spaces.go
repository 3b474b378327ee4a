package spaces

import (
	"bytes"
	"context"
	"io"

	"github.com/adityawarman/citralab/internal/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Provider implements an s3-compatible object storage for artifacts
type Provider struct {
	spaces *s3.S3
	space  string
}

// New returns a new Provider instance
func New(space, endpoint, accessKey, secretKey string, forcePathStyle bool) (*Provider, error) {
	spacesSession, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("us-east-1"), // Needs to be us-east-1 for Spaces, or it'll fail
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})
	if err != nil {
		return nil, err
	}

	spaces := s3.New(spacesSession)

	// Verify that we can reach the bucket
	_, err = spaces.HeadBucket(&s3.HeadBucketInput{
		Bucket: &space,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		spaces: spaces,
		space:  space,
	}, nil
}

// Get returns the object data for a key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	object := s3.GetObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key),
	}

	output, err := p.spaces.GetObjectWithContext(ctx, &object)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}
	defer output.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, output.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Put writes the object data for a key
func (p *Provider) Put(ctx context.Context, key string, data []byte) error {
	object := s3.PutObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}

	_, err := p.spaces.PutObjectWithContext(ctx, &object)
	return err
}

// Delete removes the object for a key
func (p *Provider) Delete(ctx context.Context, key string) error {
	object := s3.DeleteObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key),
	}

	_, err := p.spaces.DeleteObjectWithContext(ctx, &object)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return storage.ErrNotFound
		}

		return err
	}

	return nil
}

// Shutdown shuts down the storage
func (p *Provider) Shutdown() {}
