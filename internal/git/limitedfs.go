package git

import (
	"errors"
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

// ErrFsLimitExceeded is returned when a clone writes more files or bytes than allowed
var ErrFsLimitExceeded = errors.New("repository exceeds filesystem limits")

// LimitedFs bounds the number of files and total bytes written to a filesystem
type LimitedFs struct {
	billy.Filesystem

	MaxFiles      int64
	TotalFileSize int64

	mu      sync.Mutex
	files   int64
	written int64
}

// Create creates a file, counting it against MaxFiles
func (f *LimitedFs) Create(filename string) (billy.File, error) {
	return f.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens a file. Files opened with O_CREATE count against MaxFiles.
func (f *LimitedFs) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&os.O_CREATE != 0 {
		if err := f.addFile(); err != nil {
			return nil, err
		}
	}
	file, err := f.Filesystem.OpenFile(filename, flag, perm)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: file, fs: f}, nil
}

// TempFile creates a temporary file, counting it against MaxFiles
func (f *LimitedFs) TempFile(dir, prefix string) (billy.File, error) {
	if err := f.addFile(); err != nil {
		return nil, err
	}
	file, err := f.Filesystem.TempFile(dir, prefix)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: file, fs: f}, nil
}

func (f *LimitedFs) addFile() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MaxFiles > 0 && f.files >= f.MaxFiles {
		return ErrFsLimitExceeded
	}
	f.files++
	return nil
}

func (f *LimitedFs) addBytes(n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TotalFileSize > 0 && f.written+n > f.TotalFileSize {
		return ErrFsLimitExceeded
	}
	f.written += n
	return nil
}

type limitedFile struct {
	billy.File
	fs *LimitedFs
}

func (l *limitedFile) Write(p []byte) (int, error) {
	if err := l.fs.addBytes(int64(len(p))); err != nil {
		return 0, err
	}
	return l.File.Write(p)
}
