package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docindex/config"
	"docindex/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyModelHash     = []byte("embedding_model_hash")
	keyModelName     = []byte("embedding_model")
)

// SchemaInfo stores the schema version and the fingerprint of the embedding
// model that produced the stored vectors.
type SchemaInfo struct {
	Version   int    `json:"version"`
	ModelHash string `json:"model_hash"`
	ModelName string `json:"model_name"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				info.Version = 0
			}
		}
		info.ModelHash = string(b.Get(keyModelHash))
		info.ModelName = string(b.Get(keyModelName))
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("get schema info", err)
	}
	return &info, nil
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		if err := b.Put(keyModelName, []byte(info.ModelName)); err != nil {
			return err
		}
		return b.Put(keyModelHash, []byte(info.ModelHash))
	})
	return domain.NewStorageError("set schema info", err)
}

// ComputeModelHash fingerprints the settings that determine the vector space.
// Vectors from different models are not comparable, so a change means rebuild.
func ComputeModelHash(cfg *config.Config) string {
	relevant := struct {
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		Dimension int    `json:"dimension,omitempty"`
	}{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
	}
	if cfg.Embedding.Provider == config.ProviderMock {
		relevant.Dimension = cfg.Embedding.Dimension
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration checks if migration or rebuild is needed.
func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, err
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ModelHash != "" && info.ModelHash != ComputeModelHash(cfg) {
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed (%s -> %s)", info.ModelName, cfg.Embedding.Model)
	}

	return result, nil
}

// Migrate runs pending schema migrations and records the current model.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:   CurrentSchemaVersion,
		ModelHash: ComputeModelHash(cfg),
		ModelName: cfg.Embedding.Model,
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		err := s.db.Update(func(tx *bbolt.Tx) error {
			for _, b := range dataBuckets {
				if _, err := tx.CreateBucketIfNotExists(b); err != nil {
					return err
				}
			}
			return nil
		})
		return domain.NewStorageError("migrate", err)
	default:
		return nil
	}
}

// Prepare brings the store in line with cfg before an indexing run: a store
// built with another embedding model is cleared, otherwise pending migrations
// run. It reports whether the store was cleared.
func (s *BoltStore) Prepare(cfg *config.Config) (bool, string, error) {
	result, err := s.CheckMigration(cfg)
	if err != nil {
		return false, "", err
	}

	cleared := false
	if result.NeedsRebuild {
		if err := s.ClearAll(); err != nil {
			return false, result.Reason, err
		}
		cleared = true
	}
	if err := s.Migrate(cfg); err != nil {
		return cleared, result.Reason, err
	}
	return cleared, result.Reason, nil
}
