package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/pdfqa"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"gopkg.in/yaml.v3"
)

const (
	FormatVersion = 1
	manifestName  = "manifest.yaml"
)

// Manifest describes a saved index.
type Manifest struct {
	FormatVersion  int       `yaml:"format_version" json:"formatVersion"`
	BuildID        string    `yaml:"build_id" json:"buildId"`
	CreatedAt      time.Time `yaml:"created_at" json:"createdAt"`
	EmbeddingModel string    `yaml:"embedding_model" json:"embeddingModel"`
	Dimension      int       `yaml:"dimension" json:"dimension"`
	Count          int       `yaml:"count" json:"count"`
	ChunkSize      int       `yaml:"chunk_size" json:"chunkSize"`
	ChunkOverlap   int       `yaml:"chunk_overlap" json:"chunkOverlap"`
	Documents      []string  `yaml:"documents" json:"documents"`
	DataFile       string    `yaml:"data_file" json:"-"`
	Encrypted      bool      `yaml:"encrypted" json:"encrypted"`
	Compressed     bool      `yaml:"compressed" json:"compressed"`
	Checksum       string    `yaml:"checksum" json:"-"`
}

type SaveOptions struct {
	// Key is a 32 byte AES-GCM key. Without it the data file is written in
	// the clear and can only be loaded with AllowUnsafeDeserialization.
	Key      string
	Compress bool
}

// Save writes ix to dir, replacing any index already there. The new index
// is written to a sibling directory first and renamed into place.
func Save(ix *Index, dir string, opts SaveOptions) (err error) {
	if opts.Key != "" && len(opts.Key) != 32 {
		return fmt.Errorf("%w: index key must be 32 bytes", pdfqa.ErrInvalidArgument)
	}
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err = os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %q: %w", pdfqa.ErrPersistence, parent, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary directory: %w", pdfqa.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	m := ix.manifest
	m.DataFile = "index.gob"
	if opts.Compress {
		m.DataFile += ".gz"
	}
	m.Encrypted = opts.Key != ""
	m.Compressed = opts.Compress
	m.Count = ix.Len()
	dataPath := filepath.Join(tmp, m.DataFile)
	if err = ix.db.ExportToFile(dataPath, opts.Compress, opts.Key, collectionName); err != nil {
		return fmt.Errorf("%w: failed to export index: %w", pdfqa.ErrPersistence, err)
	}
	if m.Checksum, err = checksum(dataPath); err != nil {
		return fmt.Errorf("%w: %w", pdfqa.ErrPersistence, err)
	}
	mb, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: failed to encode manifest: %w", pdfqa.ErrPersistence, err)
	}
	if err = os.WriteFile(filepath.Join(tmp, manifestName), mb, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write manifest: %w", pdfqa.ErrPersistence, err)
	}
	if err = swap(tmp, dir); err != nil {
		return fmt.Errorf("%w: %w", pdfqa.ErrPersistence, err)
	}
	return nil
}

// swap replaces dir with src. Directories cannot be renamed over each
// other, so any existing dir is moved aside first and removed afterwards.
func swap(src, dir string) error {
	old := dir + ".old-" + uuid.NewString()
	hadOld := true
	if err := os.Rename(dir, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to move existing index aside: %w", err)
		}
		hadOld = false
	}
	if err := os.Rename(src, dir); err != nil {
		if hadOld {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("failed to move new index into place: %w", err)
	}
	if hadOld {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("failed to remove previous index: %w", err)
		}
	}
	return nil
}

type LoadOptions struct {
	// Key decrypts an encrypted index. Decryption also authenticates it.
	Key string
	// AllowUnsafeDeserialization permits loading an unencrypted index, whose
	// contents cannot be authenticated.
	AllowUnsafeDeserialization bool
	// ExpectedModel and ExpectedDimension reject indexes built with a
	// different embedding model when set.
	ExpectedModel     string
	ExpectedDimension int
	Log               *slog.Logger
}

// Load reads the index saved in dir.
func Load(dir string, opts LoadOptions) (*Index, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if err = m.check(opts); err != nil {
		return nil, err
	}
	dataPath := filepath.Join(dir, m.DataFile)
	sum, err := checksum(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pdfqa.ErrCorruptIndex, err)
	}
	if sum != m.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", pdfqa.ErrCorruptIndex)
	}
	if !m.Encrypted && opts.Log != nil {
		opts.Log.Warn("loading unencrypted index, its contents are trusted without authentication", slog.String("dir", dir))
	}
	var key string
	if m.Encrypted {
		key = opts.Key
	}
	db := chromem.NewDB()
	if err = db.ImportFromFile(dataPath, key, collectionName); err != nil {
		return nil, fmt.Errorf("%w: failed to import index: %w", pdfqa.ErrCorruptIndex, err)
	}
	c := db.GetCollection(collectionName, precomputed)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %q not found", pdfqa.ErrCorruptIndex, collectionName)
	}
	if c.Count() != m.Count {
		return nil, fmt.Errorf("%w: manifest lists %d chunks, found %d", pdfqa.ErrCorruptIndex, m.Count, c.Count())
	}
	return &Index{db: db, collection: c, manifest: m}, nil
}

// ReadManifest returns the manifest of the index saved in dir without
// loading its data.
func ReadManifest(dir string) (m Manifest, err error) {
	mb, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, pdfqa.ErrIndexNotFound
		}
		return m, fmt.Errorf("%w: failed to read manifest: %w", pdfqa.ErrPersistence, err)
	}
	if err = yaml.Unmarshal(mb, &m); err != nil {
		return m, fmt.Errorf("%w: failed to parse manifest: %w", pdfqa.ErrCorruptIndex, err)
	}
	return m, nil
}

func (m Manifest) check(opts LoadOptions) error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", pdfqa.ErrCorruptIndex, m.FormatVersion)
	}
	if m.DataFile == "" || filepath.Base(m.DataFile) != m.DataFile {
		return fmt.Errorf("%w: invalid data file %q", pdfqa.ErrCorruptIndex, m.DataFile)
	}
	if !m.Encrypted && !opts.AllowUnsafeDeserialization {
		return pdfqa.ErrUntrustedIndex
	}
	if m.Encrypted && opts.Key == "" {
		return fmt.Errorf("%w: index is encrypted and no index key is configured", pdfqa.ErrConfiguration)
	}
	if opts.ExpectedModel != "" && m.EmbeddingModel != "" && opts.ExpectedModel != m.EmbeddingModel {
		return fmt.Errorf("%w: index was built with embedding model %q, expected %q", pdfqa.ErrCorruptIndex, m.EmbeddingModel, opts.ExpectedModel)
	}
	if opts.ExpectedDimension > 0 && m.Count > 0 && opts.ExpectedDimension != m.Dimension {
		return fmt.Errorf("%w: index has dimension %d, expected %d", pdfqa.ErrCorruptIndex, m.Dimension, opts.ExpectedDimension)
	}
	return nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
