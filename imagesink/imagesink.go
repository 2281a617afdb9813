// Package imagesink encodes rendered images and writes them to local files or
// S3.
package imagesink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/golang/glog"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var ErrUnknownFormat = errors.New("unknown image format")

// Format is an image encoding.
type Format struct {
	Name        string
	ContentType string
	Encode      func(w io.Writer, img image.Image) error
}

var formats = map[string]Format{
	".png": {
		Name:        "png",
		ContentType: "image/png",
		Encode:      png.Encode,
	},
	".bmp": {
		Name:        "bmp",
		ContentType: "image/bmp",
		Encode:      bmp.Encode,
	},
	".tif": {
		Name:        "tiff",
		ContentType: "image/tiff",
		Encode:      encodeTIFF,
	},
	".tiff": {
		Name:        "tiff",
		ContentType: "image/tiff",
		Encode:      encodeTIFF,
	},
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

// FormatFor picks the encoding from the extension of dest.
func FormatFor(dest string) (Format, error) {
	ext := strings.ToLower(path.Ext(dest))
	f, ok := formats[ext]
	if !ok {
		return Format{}, fmt.Errorf("extension %q: %w", ext, ErrUnknownFormat)
	}
	return f, nil
}

// Preview scales img down to width pixels wide, keeping the aspect ratio.
// Images already narrower than width are returned unchanged.
func Preview(img image.Image, width uint) image.Image {
	if width == 0 || uint(img.Bounds().Dx()) <= width {
		return img
	}
	return resize.Resize(width, 0, img, resize.Bilinear)
}

type Options struct {
	S3Region   string
	S3Endpoint string
}

// Sink writes images to destinations named by a local path or an
// s3://bucket/key URL.
type Sink struct {
	options Options

	// Created on first use, so that local-only runs never need AWS
	// configuration.
	s3Client s3iface.S3API
}

func New(options Options) *Sink {
	return &Sink{options: options}
}

// NewWithClient returns a sink that uploads through client.
func NewWithClient(client s3iface.S3API) *Sink {
	return &Sink{s3Client: client}
}

// Write encodes img according to the extension of dest and stores it there.
func (s *Sink) Write(ctx context.Context, img image.Image, dest string) error {
	format, err := FormatFor(dest)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	if err := format.Encode(buf, img); err != nil {
		return fmt.Errorf("while encoding %s: %w", format.Name, err)
	}

	if strings.HasPrefix(dest, "s3://") {
		bucket, key, err := parseS3(dest)
		if err != nil {
			return err
		}
		return s.upload(ctx, buf.Bytes(), bucket, key, format.ContentType)
	}

	if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("while writing %s: %w", dest, err)
	}
	glog.Infof("Wrote %s (%d bytes)", dest, buf.Len())
	return nil
}

func (s *Sink) upload(ctx context.Context, data []byte, bucket, key, contentType string) error {
	client, err := s.client()
	if err != nil {
		return err
	}

	size := int64(len(data))
	_, err = client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("while uploading s3://%s/%s: %w", bucket, key, err)
	}

	glog.Infof("Uploaded s3://%s/%s (%d bytes)", bucket, key, size)
	return nil
}

func (s *Sink) client() (s3iface.S3API, error) {
	if s.s3Client != nil {
		return s.s3Client, nil
	}

	cfg := &aws.Config{}
	if s.options.S3Region != "" {
		cfg.Region = aws.String(s.options.S3Region)
	}
	if s.options.S3Endpoint != "" {
		cfg.Endpoint = aws.String(s.options.S3Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("while creating S3 session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s.s3Client, nil
}

// parseS3 splits an s3://bucket/key destination.
func parseS3(dest string) (bucket, key string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(dest, "s3://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("bad S3 destination %q, want s3://bucket/key", dest)
	}
	return parts[0], parts[1], nil
}
