// Package training turns the training image store into a recognition model.
package training

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/kozaktomas/attendance/internal/logging"
	"github.com/kozaktomas/attendance/internal/roster"
	"github.com/kozaktomas/attendance/internal/samples"
	"github.com/kozaktomas/attendance/internal/vision"
)

var log = logging.Log

var ErrNoTrainingImages = errors.New("no training images found")

// Image is one sample file resolved to a student.
type Image struct {
	Path    string
	Student roster.Student
}

// Collection is the input of Train.
type Collection struct {
	Images []Image
	// Unmapped lists folders that could not be attributed to a roster student.
	Unmapped []string
}

// Students returns the distinct enrollments in the collection, sorted.
func (c Collection) Students() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, img := range c.Images {
		if !seen[img.Student.Enrollment] {
			seen[img.Student.Enrollment] = true
			ids = append(ids, img.Student.Enrollment)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Collect walks the store and resolves every folder to a student. Folders
// that resolve to nobody are reported in Unmapped instead of being trained
// under a placeholder label.
func Collect(store *samples.Store, students []roster.Student) (Collection, error) {
	idx := roster.Index(students)
	var c Collection
	unmapped := make(map[string]bool)

	err := store.Walk(func(dirName, path string) error {
		st, ok := store.ResolveWithRoster(dirName, idx)
		if !ok {
			if !unmapped[dirName] {
				unmapped[dirName] = true
				c.Unmapped = append(c.Unmapped, dirName)
				log.Warnf("training: folder %s does not belong to a registered student, skipping", dirName)
			}
			return nil
		}
		c.Images = append(c.Images, Image{Path: path, Student: st})
		return nil
	})
	if err != nil {
		return c, fmt.Errorf("walking training images: %w", err)
	}
	return c, nil
}

// Progress is called after each image is loaded.
type Progress func(done, total int)

// Result summarizes a training run.
type Result struct {
	Images   int      `json:"images"`
	Students int      `json:"students"`
	Skipped  []string `json:"skipped,omitempty"`
	Unmapped []string `json:"unmapped,omitempty"`
}

// Train loads every image of the collection, trains a recognizer and writes it
// to modelPath. The previous model is only replaced once the new one is saved.
func Train(ctx context.Context, backend vision.Backend, c Collection, modelPath string, progress Progress) (*Result, error) {
	if len(c.Images) == 0 {
		return nil, ErrNoTrainingImages
	}

	res := &Result{Unmapped: c.Unmapped}
	batch := make([]vision.Sample, 0, len(c.Images))
	labels := make(map[int64]bool)

	for i, img := range c.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if img.Student.Enrollment > roster.MaxEnrollment {
			log.Warnf("training: skipping %s: enrollment %d does not fit a recognizer label", img.Path, img.Student.Enrollment)
			res.Skipped = append(res.Skipped, img.Path)
			if progress != nil {
				progress(i+1, len(c.Images))
			}
			continue
		}
		gray, err := loadGray(img.Path)
		if err != nil {
			log.Warnf("training: skipping %s: %v", img.Path, err)
			res.Skipped = append(res.Skipped, img.Path)
		} else {
			batch = append(batch, vision.Sample{Label: int(img.Student.Enrollment), Image: gray})
			labels[img.Student.Enrollment] = true
		}
		if progress != nil {
			progress(i+1, len(c.Images))
		}
	}
	if len(batch) == 0 {
		return nil, ErrNoTrainingImages
	}

	trainer, err := backend.NewTrainer()
	if err != nil {
		return nil, err
	}
	defer trainer.Close()
	if err := trainer.Train(batch); err != nil {
		return nil, fmt.Errorf("training recognizer: %w", err)
	}

	if err := save(trainer, modelPath); err != nil {
		return nil, err
	}

	res.Images = len(batch)
	res.Students = len(labels)
	log.Infof("training: model written to %s (%d images, %d students)", modelPath, res.Images, res.Students)
	return res, nil
}

// save writes to a temporary file next to modelPath and renames it into place.
// The temporary name keeps the extension, which selects the model format.
func save(trainer vision.Trainer, modelPath string) error {
	dir := filepath.Dir(modelPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(modelPath))
	defer os.Remove(tmp)

	if err := trainer.Save(tmp); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	if err := os.Rename(tmp, modelPath); err != nil {
		return fmt.Errorf("replacing model: %w", err)
	}
	return nil
}

func loadGray(path string) (*image.Gray, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := vision.Decode(data)
	if err != nil {
		return nil, err
	}
	return vision.Grayscale(img), nil
}
