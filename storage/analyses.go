package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"threadscope/metrics"
	"threadscope/models"
)

// ErrAnalysisNotFound is returned for ids with no stored document
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisStorage persists analysis documents in BoltDB. Documents and
// their index entries live in separate buckets so listing never decodes
// full documents.
type AnalysisStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewAnalysisStorage opens (or creates) the database under dataDir
func NewAnalysisStorage(dataDir string) (*AnalysisStorage, error) {
	db, err := InitDB(dataDir)
	if err != nil {
		return nil, err
	}
	return &AnalysisStorage{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *AnalysisStorage) Close() error {
	return s.db.Close()
}

// SaveAnalysis stores doc under a new id and returns its index entry
func (s *AnalysisStorage) SaveAnalysis(source string, doc *models.Document) (models.AnalysisMeta, error) {
	meta := models.NewAnalysisMeta(uuid.New().String(), source, doc, s.now().UTC())

	encodedDoc, err := json.Marshal(doc)
	if err != nil {
		return models.AnalysisMeta{}, fmt.Errorf("failed to encode analysis: %w", err)
	}
	encodedMeta, err := json.Marshal(meta)
	if err != nil {
		return models.AnalysisMeta{}, fmt.Errorf("failed to encode analysis index: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(analysisBucket).Put([]byte(meta.ID), encodedDoc); err != nil {
			return err
		}
		return tx.Bucket(analysisIndexBucket).Put([]byte(meta.ID), encodedMeta)
	})
	if err != nil {
		return models.AnalysisMeta{}, fmt.Errorf("failed to save analysis: %w", err)
	}

	metrics.AnalysesStored.Inc()
	return meta, nil
}

// GetAnalysis retrieves a stored document by id
func (s *AnalysisStorage) GetAnalysis(id string) (*models.Document, error) {
	var doc models.Document

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(analysisBucket).Get([]byte(id))
		if data == nil {
			return ErrAnalysisNotFound
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// GetMeta retrieves the index entry for id
func (s *AnalysisStorage) GetMeta(id string) (models.AnalysisMeta, error) {
	var meta models.AnalysisMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(analysisIndexBucket).Get([]byte(id))
		if data == nil {
			return ErrAnalysisNotFound
		}
		return json.Unmarshal(data, &meta)
	})

	return meta, err
}

// ListAnalyses returns every index entry, newest first
func (s *AnalysisStorage) ListAnalyses() ([]models.AnalysisMeta, error) {
	metas := []models.AnalysisMeta{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(analysisIndexBucket).ForEach(func(k, v []byte) error {
			var meta models.AnalysisMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("corrupt index entry %s: %w", k, err)
			}
			metas = append(metas, meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	return metas, nil
}

// DeleteAnalysis removes a document and its index entry
func (s *AnalysisStorage) DeleteAnalysis(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(analysisBucket)
		if docs.Get([]byte(id)) == nil {
			return ErrAnalysisNotFound
		}
		if err := docs.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(analysisIndexBucket).Delete([]byte(id))
	})
}
