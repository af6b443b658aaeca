package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/paritytech/revive-sub000/internal/evm"
)

// ContractSpec describes a [[contract]] entry of revive.toml.
type ContractSpec struct {
	Path string `toml:"path"`
	// Deploy and Runtime name files holding hex bytecode, relative to the
	// manifest.
	Deploy       string            `toml:"deploy"`
	Runtime      string            `toml:"runtime"`
	Immutables   int               `toml:"immutables"`
	MetadataHash string            `toml:"metadata_hash"`
	Dependencies map[string]string `toml:"dependencies"`
}

// Manifest is a parsed revive.toml.
type Manifest struct {
	Path      string
	Root      string
	Name      string
	Out       string
	Contracts []ContractSpec
}

var (
	// ErrProjectSectionMissing indicates that [project] is missing.
	ErrProjectSectionMissing = errors.New("missing [project]")
	// ErrNoContracts indicates that the manifest lists no contracts.
	ErrNoContracts = errors.New("no [[contract]] entries")
)

type manifestFile struct {
	Project struct {
		Name string `toml:"name"`
		Out  string `toml:"out"`
	} `toml:"project"`
	Contract []ContractSpec `toml:"contract"`
}

// LoadManifest parses revive.toml.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	if len(cfg.Contract) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoContracts)
	}
	m := &Manifest{
		Path:      path,
		Root:      filepath.Dir(path),
		Name:      strings.TrimSpace(cfg.Project.Name),
		Out:       strings.TrimSpace(cfg.Project.Out),
		Contracts: cfg.Contract,
	}
	if m.Out == "" {
		m.Out = "build"
	}
	for i := range m.Contracts {
		spec := &m.Contracts[i]
		norm, err := NormalizeContractPath(spec.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: contract %d: %w", path, i+1, err)
		}
		spec.Path = norm
		if spec.Deploy == "" && spec.Runtime == "" {
			return nil, fmt.Errorf("%s: contract %s has neither deploy nor runtime code", path, norm)
		}
		if spec.Immutables < 0 {
			return nil, fmt.Errorf("%s: contract %s: negative immutables", path, norm)
		}
	}
	return m, nil
}

// Load reads the bytecode files and returns the contracts.
func (m *Manifest) Load() ([]Contract, error) {
	out := make([]Contract, 0, len(m.Contracts))
	for _, spec := range m.Contracts {
		src := BytecodeSource{}
		var err error
		if src.Deploy, err = m.readHex(spec.Deploy); err != nil {
			return nil, fmt.Errorf("contract %s: deploy code: %w", spec.Path, err)
		}
		if src.Runtime, err = m.readHex(spec.Runtime); err != nil {
			return nil, fmt.Errorf("contract %s: runtime code: %w", spec.Path, err)
		}
		var metadata []byte
		if spec.MetadataHash != "" {
			if metadata, err = evm.ParseHex(spec.MetadataHash); err != nil {
				return nil, fmt.Errorf("contract %s: metadata hash: %w", spec.Path, err)
			}
		}
		out = append(out, Contract{
			Path:         spec.Path,
			Source:       src,
			Dependencies: spec.Dependencies,
			Immutables:   spec.Immutables,
			MetadataHash: metadata,
		})
	}
	return out, nil
}

// OutPath returns the output directory, resolved against the manifest.
func (m *Manifest) OutPath() string {
	if filepath.IsAbs(m.Out) {
		return m.Out
	}
	return filepath.Join(m.Root, m.Out)
}

func (m *Manifest) readHex(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.Root, filepath.FromSlash(name))
	}
	// #nosec G304 -- the manifest names its inputs
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return evm.ParseHex(string(data))
}
