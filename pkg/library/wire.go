package library

import (
	"fmt"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("fusion.library")

// DatabaseVersion is the current library database format version.
const DatabaseVersion = 1

// database is the CBOR shape of a serialized registry.
type database struct {
	Version int          `cbor:"version"`
	Classes []*ClassDesc `cbor:"classes"`
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("library: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

func unmarshalDesc(data []byte, d *ClassDesc) error {
	return cbor.Unmarshal(data, d)
}

// MarshalRegistry serializes a registry to CBOR bytes. Classes are
// ordered by qualified name so the encoding is deterministic.
func MarshalRegistry(r *Registry) ([]byte, error) {
	classes := r.All()
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].FullName.String() < classes[j].FullName.String()
	})
	db := database{Version: DatabaseVersion, Classes: classes}
	return cborEncMode.Marshal(&db)
}

// UnmarshalRegistry deserializes a registry from CBOR bytes.
func UnmarshalRegistry(data []byte) (*Registry, error) {
	var db database
	if err := cbor.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("library: unmarshal database: %w", err)
	}
	if db.Version > DatabaseVersion {
		return nil, fmt.Errorf("library: database version %d is newer than %d", db.Version, DatabaseVersion)
	}
	return NewRegistry(db.Classes...), nil
}

// SaveDatabase writes a registry to a database file.
func SaveDatabase(r *Registry, path string) error {
	data, err := MarshalRegistry(r)
	if err != nil {
		return fmt.Errorf("library: marshal database: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("library: write database: %w", err)
	}
	log.Infof("saved %d types to %s", r.Len(), path)
	return nil
}

// LoadDatabase reads a registry from a database file.
func LoadDatabase(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("library: read database: %w", err)
	}
	r, err := UnmarshalRegistry(data)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %d types from %s", r.Len(), path)
	return r, nil
}
