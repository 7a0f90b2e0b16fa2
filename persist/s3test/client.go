// Package s3test provides S3 clients for tests: an in-process fake by
// default, or a real endpoint named by PVEC_TEST_S3_ENDPOINT.
package s3test

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"
)

// Client returns an S3 client and the name of an empty bucket, both
// cleaned up when the test ends.
//
// With PVEC_TEST_S3_ENDPOINT set, the client talks to that endpoint using
// the usual AWS_* credentials; PVEC_TEST_S3_BUCKET then names a bucket to
// use (and empty) instead of creating one.
func Client(t testing.TB) (*s3.S3, string) {
	t.Helper()
	var client *s3.S3
	endpoint := os.Getenv("PVEC_TEST_S3_ENDPOINT")
	if endpoint != "" {
		config := aws.Config{
			Credentials: credentials.NewStaticCredentials(
				getEnv(t, "AWS_ACCESS_KEY_ID"),
				getEnv(t, "AWS_SECRET_ACCESS_KEY"),
				os.Getenv("AWS_SESSION_TOKEN"),
			),
			Endpoint:         aws.String(endpoint),
			S3ForcePathStyle: aws.Bool(true),
		}
		// With AWS_REGION set, this is real AWS and the SDK picks the
		// endpoint. Otherwise the region only has to be nonempty.
		config.Region = aws.String(getEnvOrDefault("AWS_REGION", "not-using-AWS"))
		if *config.Region != "not-using-AWS" {
			config.Endpoint = nil
		}
		sess, err := session.NewSession(&config)
		require.NoError(t, err)
		client = s3.New(sess)
	} else {
		faker := gofakes3.New(s3mem.New())
		ts := httptest.NewServer(faker.Server())
		t.Cleanup(ts.Close)

		sess, err := session.NewSession(&aws.Config{
			Credentials: credentials.NewStaticCredentials(
				"TEST-ACCESSKEYID",
				"TEST-SECRETACCESSKEY",
				"",
			),
			Endpoint:         aws.String(ts.URL),
			Region:           aws.String("ca-west-1"),
			DisableSSL:       aws.Bool(true),
			S3ForcePathStyle: aws.Bool(true),
		})
		require.NoError(t, err)
		client = s3.New(sess)
	}

	bucketName := os.Getenv("PVEC_TEST_S3_BUCKET")
	if bucketName != "" && endpoint != "" {
		require.NoError(t, emptyBucket(client, bucketName))
		t.Cleanup(func() { emptyBucket(client, bucketName) })
		return client, bucketName
	}
	bucketName = randBucketName(t)
	_, err := client.CreateBucket(&s3.CreateBucketInput{
		Bucket: &bucketName,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if emptyBucket(client, bucketName) == nil {
			client.DeleteBucket(&s3.DeleteBucketInput{Bucket: &bucketName})
		}
	})
	return client, bucketName
}

func getEnv(t testing.TB, key string) string {
	res := os.Getenv(key)
	if res == "" {
		t.Fatalf("environment '%s' unset", key)
	}
	return res
}

func getEnvOrDefault(key, def string) string {
	res := os.Getenv(key)
	if res == "" {
		return def
	}
	return res
}

func randBucketName(t testing.TB) string {
	i, err := rand.Int(rand.Reader, big.NewInt(math.MaxUint32))
	require.NoError(t, err)
	return fmt.Sprintf("bucket-%s", i)
}

func emptyBucket(s *s3.S3, bucket string) error {
	params := &s3.ListObjectsInput{
		Bucket: &bucket,
	}
	for {
		objects, err := s.ListObjects(params)
		if err != nil {
			return err
		}
		if len(objects.Contents) == 0 {
			return nil
		}
		toDelete := make([]*s3.ObjectIdentifier, 0, len(objects.Contents))
		for _, object := range objects.Contents {
			toDelete = append(toDelete, &s3.ObjectIdentifier{Key: object.Key})
		}
		_, err = s.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: &bucket,
			Delete: &s3.Delete{Objects: toDelete},
		})
		if err != nil {
			return err
		}
		if !aws.BoolValue(objects.IsTruncated) {
			return nil
		}
		params.Marker = toDelete[len(toDelete)-1].Key
	}
}
