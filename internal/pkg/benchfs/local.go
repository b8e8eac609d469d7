package benchfs

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// LocalFileSystem stores artifacts on the local disk.
type LocalFileSystem struct{}

func walkDir(dir string) []FileInfo {
	files := make([]FileInfo, 0)
	filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			log.Error(err)
			return err
		}
		if f.IsDir() {
			return nil
		}
		files = append(files, FileInfo{
			Name: path,
			Size: f.Size(),
		})
		return nil
	})

	return files
}

func (l *LocalFileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	globbedFiles, err := filepath.Glob(pathGlob)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0)
	for _, fileName := range globbedFiles {
		fInfo, err := os.Stat(fileName)
		if err != nil {
			log.Error(err)
			continue
		}
		if !fInfo.IsDir() {
			files = append(files, FileInfo{
				Name: fileName,
				Size: fInfo.Size(),
			})
		} else {
			files = append(files, walkDir(fileName)...)
		}
	}

	return files, err
}

func (l *LocalFileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	_, err = file.Seek(startAt, io.SeekStart)
	return file, err
}

// OpenWriter writes to a temporary file next to filePath and renames it into
// place on Close, so a crashed or failed write never leaves a partial
// artifact at the final path.
func (l *LocalFileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp*")
	if err != nil {
		return nil, err
	}
	return &atomicWriter{file: tmp, finalPath: filePath}, nil
}

type atomicWriter struct {
	file      *os.File
	finalPath string
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *atomicWriter) Close() error {
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return err
	}
	if err := os.Rename(w.file.Name(), w.finalPath); err != nil {
		os.Remove(w.file.Name())
		return err
	}
	return nil
}

func (l *LocalFileSystem) Stat(filePath string) (FileInfo, error) {
	fInfo, err := os.Stat(filePath)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name: filePath,
		Size: fInfo.Size(),
	}, nil
}

func (l *LocalFileSystem) Init() error {
	return nil
}

func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}
