package benchfs

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3FileSystem stores artifacts in S3. Paths are of the form
// "s3://bucket/key". Uploads are streamed through s3manager and only become
// visible once the upload completes, so writes are atomic per artifact.
type S3FileSystem struct {
	client   *s3.S3
	uploader *s3manager.Uploader
}

func parseS3Path(filePath string) (bucket string, key string, err error) {
	trimmed := strings.TrimPrefix(filePath, "s3://")
	if trimmed == filePath {
		return "", "", fmt.Errorf("not an s3 path: %s", filePath)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid s3 path: %s", filePath)
	}
	return parts[0], parts[1], nil
}

// globPrefix returns the literal prefix of a glob pattern, i.e. everything
// before the first metacharacter.
func globPrefix(pattern string) string {
	if idx := strings.IndexAny(pattern, "*?["); idx != -1 {
		return pattern[:idx]
	}
	return pattern
}

func (s *S3FileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	bucket, keyGlob, err := parseS3Path(pathGlob)
	if err != nil {
		return nil, err
	}

	s3Files := make([]FileInfo, 0)
	params := &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(globPrefix(keyGlob)),
	}
	err = s.client.ListObjectsPages(params,
		func(page *s3.ListObjectsOutput, _ bool) bool {
			for _, object := range page.Contents {
				matched, _ := path.Match(keyGlob, *object.Key)
				if matched || *object.Key == keyGlob {
					s3Files = append(s3Files, FileInfo{
						Name: fmt.Sprintf("s3://%s/%s", bucket, *object.Key),
						Size: *object.Size,
					})
				}
			}
			return true
		})

	return s3Files, err
}

func (s *S3FileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	bucket, key, err := parseS3Path(filePath)
	if err != nil {
		return nil, err
	}

	params := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if startAt > 0 {
		params.Range = aws.String(fmt.Sprintf("bytes=%d-", startAt))
	}

	resp, err := s.client.GetObject(params)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

type s3Writer struct {
	writer *io.PipeWriter
	result chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		return err
	}
	return <-w.result
}

func (s *S3FileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	bucket, key, err := parseS3Path(filePath)
	if err != nil {
		return nil, err
	}

	reader, writer := io.Pipe()
	result := make(chan error, 1)
	go func() {
		_, err := s.uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   reader,
		})
		reader.CloseWithError(err)
		result <- err
	}()

	return &s3Writer{writer: writer, result: result}, nil
}

func (s *S3FileSystem) Stat(filePath string) (FileInfo, error) {
	bucket, key, err := parseS3Path(filePath)
	if err != nil {
		return FileInfo{}, err
	}

	result, err := s.client.ListObjects(&s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	})
	if err != nil {
		return FileInfo{}, err
	}

	for _, object := range result.Contents {
		if *object.Key == key {
			return FileInfo{
				Name: filePath,
				Size: *object.Size,
			}, nil
		}
	}

	return FileInfo{}, fmt.Errorf("no file found at %s", filePath)
}

func (s *S3FileSystem) Init() error {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return err
	}
	s.client = s3.New(sess)
	s.uploader = s3manager.NewUploader(sess)
	return nil
}

func (s *S3FileSystem) Join(elem ...string) string {
	if len(elem) > 0 && strings.HasPrefix(elem[0], "s3://") {
		rest := append([]string{strings.TrimPrefix(elem[0], "s3://")}, elem[1:]...)
		return "s3://" + path.Join(rest...)
	}
	return path.Join(elem...)
}
