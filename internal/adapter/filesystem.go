package adapter

import (
	"os"

	"github.com/spf13/afero"
)

// FileSystem defines an interface for file system operations to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem
type FileSystem interface {
	// WriteFile writes data to the named file, creating it if necessary
	WriteFile(name string, data []byte, perm os.FileMode) error

	// ReadFile reads the named file
	ReadFile(name string) ([]byte, error)

	// Remove removes the named file or directory
	Remove(name string) error

	// MkdirAll creates a directory along with any necessary parents
	MkdirAll(path string, perm os.FileMode) error

	// ReadDir lists the entries of the named directory
	ReadDir(dirname string) ([]os.FileInfo, error)

	// Stat returns file info for the named file
	Stat(name string) (os.FileInfo, error)

	// TempDir returns the default directory to use for temporary files
	TempDir() string
}

// AferoFileSystem implements FileSystem on top of an afero filesystem
type AferoFileSystem struct {
	fs      afero.Fs
	tempDir string
}

// NewFileSystem creates a file system backed by the operating system
func NewFileSystem() FileSystem {
	return NewAferoFileSystem(afero.NewOsFs(), os.TempDir())
}

// NewMemFileSystem creates an in-memory file system rooted at tempDir
func NewMemFileSystem(tempDir string) FileSystem {
	return NewAferoFileSystem(afero.NewMemMapFs(), tempDir)
}

// NewAferoFileSystem wraps an existing afero filesystem
func NewAferoFileSystem(fs afero.Fs, tempDir string) FileSystem {
	return &AferoFileSystem{
		fs:      fs,
		tempDir: tempDir,
	}
}

func (f *AferoFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(f.fs, name, data, perm)
}

func (f *AferoFileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(f.fs, name)
}

func (f *AferoFileSystem) Remove(name string) error {
	return f.fs.Remove(name)
}

func (f *AferoFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

func (f *AferoFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(f.fs, dirname)
}

func (f *AferoFileSystem) Stat(name string) (os.FileInfo, error) {
	return f.fs.Stat(name)
}

func (f *AferoFileSystem) TempDir() string {
	return f.tempDir
}
