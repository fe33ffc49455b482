// Package samples manages the training image folders, one per student.
package samples

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"
	"github.com/h2non/filetype"
	"github.com/karrick/godirwalk"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/logging"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/vision"
)

var log = logging.Log

var ErrNotAnImage = errors.New("file is not a supported image")

// Store is the training image directory. Each student owns the sub-directory
// DirName(student); index.yaml records which student a directory belongs to.
type Store struct {
	root   string
	finder *vision.FaceFinder
	mu     sync.Mutex
}

type indexFile struct {
	Students map[string]roster.Student `yaml:"students"`
}

// NewStore returns a store rooted at root. finder may be nil, in which case
// samples are stored as full frames.
func NewStore(root string, finder *vision.FaceFinder) *Store {
	return &Store{root: root, finder: finder}
}

func (s *Store) Root() string {
	return s.root
}

// DirName is the folder of a student: "{enrollment}_{name}".
func DirName(st roster.Student) string {
	return fmt.Sprintf("%d_%s", st.Enrollment, st.Name)
}

// Create makes the student's folder and records it in the index.
func (s *Store) Create(st roster.Student) (string, error) {
	if err := st.Validate(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, DirName(st))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating sample directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex()
	if err != nil {
		return "", err
	}
	if cur, ok := idx[DirName(st)]; ok && cur == st {
		return dir, nil
	}
	idx[DirName(st)] = st
	if err := s.saveIndex(idx); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, constants.SampleIndexFileName)
}

func (s *Store) loadIndex() (map[string]roster.Student, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]roster.Student{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sample index: %w", err)
	}
	var f indexFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sample index: %w", err)
	}
	if f.Students == nil {
		f.Students = map[string]roster.Student{}
	}
	return f.Students, nil
}

func (s *Store) saveIndex(idx map[string]roster.Student) error {
	data, err := yaml.Marshal(indexFile{Students: idx})
	if err != nil {
		return fmt.Errorf("encoding sample index: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(s.indexPath(), data, 0o644)
}

// Index returns a copy of the directory to student mapping.
func (s *Store) Index() (map[string]roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndex()
}

// Resolve looks a directory up in the index only.
func (s *Store) Resolve(dirName string) (roster.Student, bool) {
	idx, err := s.Index()
	if err != nil {
		log.Warnf("samples: %v", err)
		return roster.Student{}, false
	}
	st, ok := idx[dirName]
	return st, ok
}

// ResolveWithRoster falls back to the "{enrollment}_" prefix for folders
// created before the index existed, but only when that enrollment is on the roster.
func (s *Store) ResolveWithRoster(dirName string, students map[int64]roster.Student) (roster.Student, bool) {
	if st, ok := s.Resolve(dirName); ok {
		return st, true
	}
	prefix, _, found := strings.Cut(dirName, "_")
	if !found {
		return roster.Student{}, false
	}
	id, err := roster.ParseEnrollment(prefix)
	if err != nil {
		return roster.Student{}, false
	}
	st, ok := students[id]
	return st, ok
}

// IsImageFile checks if a file has a supported image extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// Walk calls fn for every image file below the store, in lexical order.
// dirName is the first-level folder the file belongs to; files placed
// directly in the root are ignored.
func (s *Store) Walk(fn func(dirName, path string) error) error {
	if _, err := os.Stat(s.root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godirwalk.Walk(s.root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || !IsImageFile(de.Name()) {
				return nil
			}
			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}
			first, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
			if !nested {
				return nil
			}
			return fn(first, path)
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			log.Warnf("samples: skipping %s: %v", path, err)
			return godirwalk.SkipNode
		},
	})
}

// List returns the sample files of one student.
func (s *Store) List(st roster.Student) ([]string, error) {
	dir := filepath.Join(s.root, DirName(st))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Count returns the number of samples stored for a student.
func (s *Store) Count(st roster.Student) (int, error) {
	files, err := s.List(st)
	return len(files), err
}

// AddSample stores one photo of a student. The largest detected face is
// cropped when a finder is configured, the result is converted to grayscale,
// downsized and written as "{enrollment}_{n}.png".
func (s *Store) AddSample(st roster.Student, data []byte) (string, error) {
	if !filetype.IsImage(data) {
		return "", ErrNotAnImage
	}
	img, err := vision.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	gray := vision.Grayscale(img)
	if s.finder != nil {
		if face, ok := vision.Largest(s.finder.Detect(gray)); ok {
			gray = vision.Crop(gray, face)
		} else {
			log.Debugf("samples: no face found for %d, keeping full frame", st.Enrollment)
		}
	}
	gray = vision.FitWithin(gray, constants.MaxSampleSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", fmt.Errorf("encoding sample: %w", err)
	}

	dir, err := s.Create(st)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := nextSamplePath(dir, st.Enrollment)
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing sample: %w", err)
	}
	return path, nil
}

func nextSamplePath(dir string, enrollment int64) string {
	for n := 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%d_%d.png", enrollment, n))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
	}
}

// ImportResult summarizes ImportDir.
type ImportResult struct {
	Added   []string
	Skipped []string
}

// ImportDir adds every image of a folder (non-recursive) as a sample.
// Files that are not images are skipped and reported.
func (s *Store) ImportDir(st roster.Student, dir string) (ImportResult, error) {
	var res ImportResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("cannot read folder %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return res, fmt.Errorf("reading %s: %w", path, err)
		}
		out, err := s.AddSample(st, data)
		if errors.Is(err, ErrNotAnImage) {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, out)
	}
	return res, nil
}

// Enroll registers a student on the roster and creates their sample folder
// before another registration can start.
func (s *Store) Enroll(rosterPath string, st roster.Student) (string, error) {
	var dir string
	err := roster.RegisterWith(rosterPath, st, func() (err error) {
		dir, err = s.Create(st)
		return err
	})
	return dir, err
}
