package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ZaninAndrea/fstable/pkg/fstable"
)

// push copies table files to and from S3. Uploads are verified locally first
// so a damaged file never replaces a good remote copy.
func main() {
	log.SetFlags(0)

	bucket := flag.String("bucket", "", "S3 bucket")
	key := flag.String("key", "", "S3 object key")
	file := flag.String("file", "", "local file path")
	download := flag.Bool("download", false, "download instead of upload")
	flag.Parse()

	if *bucket == "" || *key == "" || *file == "" {
		log.Fatal("usage: push -bucket <bucket> -key <key> -file <path> [-download]")
	}

	ctx := context.Background()

	opts := []func(*config.LoadOptions) error{}
	if accessKey := os.Getenv("FSTABLE_S3_KEY"); accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, os.Getenv("FSTABLE_S3_SECRET"), "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Fatal(err)
	}
	client := s3.NewFromConfig(cfg)

	if *download {
		if err := downloadFile(ctx, client, *bucket, *key, *file); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := uploadFile(ctx, client, *bucket, *key, *file); err != nil {
		log.Fatal(err)
	}
}

func uploadFile(ctx context.Context, client *s3.Client, bucket, key, path string) error {
	meta, err := fstable.ReadMeta(path)
	if err != nil {
		return err
	}
	if meta.Legacy {
		log.Print("warning: uploading a file in the deprecated format")
	}
	if _, err := fstable.Read(path, nil, 1, 0); err != nil {
		return err
	}
	log.Printf("uploading %s (%d columns, %d rows)", path, meta.NrOfCols, meta.NrOfRows)

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	tm := transfermanager.New(client, transfermanager.Options{})
	_, err = tm.PutObject(ctx, &transfermanager.PutObjectInput{
		Bucket: bucket,
		Key:    key,
		Body:   file,
	})
	if err != nil {
		return err
	}

	log.Printf("uploaded to s3://%s/%s", bucket, key)
	return nil
}

func downloadFile(ctx context.Context, client *s3.Client, bucket, key, path string) error {
	object, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer object.Body.Close()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.ReadFrom(object.Body); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}

	meta, err := fstable.ReadMeta(path)
	if err != nil {
		return err
	}
	log.Printf("downloaded s3://%s/%s (%d columns, %d rows)", bucket, key, meta.NrOfCols, meta.NrOfRows)
	return nil
}
