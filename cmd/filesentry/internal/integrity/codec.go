package integrity

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Codec serializes snapshots to and from baseline documents.
// Decode(Encode(s)) must equal s for every valid snapshot.
type Codec interface {
	Name() string
	Encode(s *Snapshot) ([]byte, error)
	Decode(data []byte) (*Snapshot, error)
}

// CodecFor returns the codec for format ("json", "yaml"). An empty format is
// inferred from the path's extension, defaulting to JSON.
func CodecFor(format, path string) (Codec, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}

	switch strings.ToLower(format) {
	case "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported baseline format %q", format)
	}
}

// JSONCodec encodes baselines as indented UTF-8 JSON.
//
// It also reads the legacy flat layout, a bare {"path": "digest"} object,
// which carries no version or algorithm.
type JSONCodec struct{}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// Encode implements Codec.
func (JSONCodec) Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot encode nil snapshot")
	}
	data, err := json.MarshalIndent(toDocument(s), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (*Snapshot, error) {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err == nil && flat != nil {
		return &Snapshot{Version: SnapshotVersion, Files: flat}, nil
	}

	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCorruptBaseline)
	}
	return doc.snapshot()
}

// YAMLCodec encodes baselines as YAML documents.
type YAMLCodec struct{}

// Name implements Codec.
func (YAMLCodec) Name() string { return "yaml" }

// Encode implements Codec.
func (YAMLCodec) Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot encode nil snapshot")
	}
	data, err := yaml.Marshal(toDocument(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal baseline: %w", err)
	}
	return data, nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(data []byte) (*Snapshot, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBaseline, err)
	}
	return doc.snapshot()
}

// document is the on-disk shape of a snapshot. Paths that are not valid
// UTF-8 cannot survive either encoder, so they are kept apart in RawFiles
// under their base64 (RFC 4648, URL alphabet) spelling.
type document struct {
	Version   int               `json:"version" yaml:"version"`
	Algorithm string            `json:"algorithm" yaml:"algorithm"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Files     map[string]string `json:"files" yaml:"files"`
	RawFiles  map[string]string `json:"raw_files,omitempty" yaml:"raw_files,omitempty"`
}

func toDocument(s *Snapshot) *document {
	doc := &document{
		Version:   s.Version,
		Algorithm: s.Algorithm,
		CreatedAt: s.CreatedAt,
		Files:     make(map[string]string, len(s.Files)),
	}
	for p, digest := range s.Files {
		if utf8.ValidString(p) {
			doc.Files[p] = digest
			continue
		}
		if doc.RawFiles == nil {
			doc.RawFiles = make(map[string]string)
		}
		doc.RawFiles[base64.URLEncoding.EncodeToString([]byte(p))] = digest
	}
	return doc
}

// snapshot validates the document and folds RawFiles back into Files.
func (doc *document) snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Version:   doc.Version,
		Algorithm: doc.Algorithm,
		CreatedAt: doc.CreatedAt,
		Files:     doc.Files,
	}
	if _, err := validateDecoded(s); err != nil {
		return nil, err
	}
	for key, digest := range doc.RawFiles {
		p, err := base64.URLEncoding.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("%w: raw path %q: %v", ErrCorruptBaseline, key, err)
		}
		s.Files[string(p)] = digest
	}
	return s, nil
}

// validateDecoded checks the version of a decoded document.
func validateDecoded(s *Snapshot) (*Snapshot, error) {
	if s.Version <= 0 {
		return nil, fmt.Errorf("%w: missing version", ErrCorruptBaseline)
	}
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: baseline version %d is newer than supported version %d",
			ErrUnsupportedVersion, s.Version, SnapshotVersion)
	}
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	return s, nil
}
