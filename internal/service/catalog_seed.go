package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var defaultCatalog []byte

// DefaultCatalog returns the embedded seed catalog.
func DefaultCatalog() []byte {
	return defaultCatalog
}

// CatalogFile is the YAML layout of a seed catalog.
type CatalogFile struct {
	Exercises []CatalogEntry `yaml:"exercises" validate:"required,dive"`
}

type CatalogEntry struct {
	CanonicalName string           `yaml:"canonical" validate:"required"`
	DisplayNameRu string           `yaml:"ru"`
	DisplayNameEn string           `yaml:"en"`
	MuscleGroups  []string         `yaml:"muscles"`
	Category      string           `yaml:"category"`
	Synonyms      []CatalogSynonym `yaml:"synonyms" validate:"dive"`
}

type CatalogSynonym struct {
	Text     string `yaml:"text" validate:"required"`
	Language string `yaml:"lang"`
}

// SeedReport counts what a seed run changed.
type SeedReport struct {
	ExercisesCreated int
	ExercisesSkipped int
	SynonymsCreated  int
	SynonymsSkipped  int
}

// ParseCatalog decodes and validates a seed catalog.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", ErrValidationFailed, err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrValidationFailed, err)
	}
	return &f, nil
}

// SeedCatalog inserts the global exercises and synonyms of data that are not stored yet.
// Existing exercises are matched by canonical name and left untouched.
func SeedCatalog(ctx context.Context, repo repository.CatalogRepository, data []byte) (*SeedReport, error) {
	f, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	report := &SeedReport{}
	for _, entry := range f.Exercises {
		exerciseID, created, err := ensureExercise(ctx, repo, entry)
		if err != nil {
			return report, err
		}
		if created {
			report.ExercisesCreated++
		} else {
			report.ExercisesSkipped++
		}

		for _, syn := range entry.Synonyms {
			_, err := repo.CreateSynonym(ctx, &domain.ExerciseSynonym{
				ExerciseID: exerciseID,
				Synonym:    syn.Text,
				Normalized: domain.NormalizeText(syn.Text),
				Language:   syn.Language,
			})
			switch {
			case err == nil:
				report.SynonymsCreated++
			case errors.Is(err, repository.ErrDuplicate):
				report.SynonymsSkipped++
			default:
				return report, storeErr("create synonym", err)
			}
		}
	}
	return report, nil
}

func ensureExercise(ctx context.Context, repo repository.CatalogRepository, entry CatalogEntry) (string, bool, error) {
	existing, err := repo.GetExerciseByCanonicalName(ctx, entry.CanonicalName)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", false, storeErr("find exercise", err)
	}
	id, err := repo.CreateExercise(ctx, &domain.Exercise{
		CanonicalName: entry.CanonicalName,
		DisplayNameRu: entry.DisplayNameRu,
		DisplayNameEn: entry.DisplayNameEn,
		MuscleGroups:  entry.MuscleGroups,
		Category:      entry.Category,
	})
	if err != nil {
		return "", false, storeErr("create exercise", err)
	}
	return id, true, nil
}
