package benchfs

import (
	"io"
	"strings"
)

// FileSystemType is an identifier for supported FileSystems
type FileSystemType int

// Identifiers for supported FileSystemTypes
const (
	Local FileSystemType = iota
	S3
)

// FileSystem provides the storage backend for benchmark artifacts. The
// dataset is read from a file system; metrics records, aggregate tables and
// comparison reports are written to one. This is abstracted so that results
// can be shipped to remote storage like S3 without touching the pipeline.
//
// Writers returned by OpenWriter are atomic per artifact: the file is not
// visible at its final path until Close returns successfully.
type FileSystem interface {
	ListFiles(pathGlob string) ([]FileInfo, error)
	Stat(filePath string) (FileInfo, error)
	OpenReader(filePath string, startAt int64) (io.ReadCloser, error)
	OpenWriter(filePath string) (io.WriteCloser, error)
	Join(elem ...string) string
	Init() error
}

// FileInfo provides information about a file
type FileInfo struct {
	Name string // file path
	Size int64  // file size in bytes
}

// InitFilesystem initializes a filesystem of the given type.
func InitFilesystem(fsType FileSystemType) FileSystem {
	var fs FileSystem
	switch fsType {
	case Local:
		fs = &LocalFileSystem{}
	case S3:
		fs = &S3FileSystem{}
	}

	fs.Init()
	return fs
}

// InferFilesystem initializes a filesystem by inspecting the given path.
// Paths prefixed with "s3://" resolve to S3, everything else to the local
// filesystem.
func InferFilesystem(location string) FileSystem {
	if strings.HasPrefix(location, "s3://") {
		return InitFilesystem(S3)
	}
	return InitFilesystem(Local)
}
