// Package config holds the Mapper orchestrator's configuration surface,
// enumerated in spec §6, plus a YAML loader for it.
package config

import (
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"golang.org/x/text/unicode/norm"
)

// NormalizationForm selects the Unicode normalization form applied before
// IRI percent-encoding (spec §4.2 step 3).
type NormalizationForm string

const (
	NFC  NormalizationForm = "NFC"
	NFD  NormalizationForm = "NFD"
	NFKC NormalizationForm = "NFKC"
	NFKD NormalizationForm = "NFKD"
)

// Form converts the configured normalization form name to its
// golang.org/x/text/unicode/norm value, defaulting to NFC for an empty or
// unrecognized name.
func (f NormalizationForm) Form() norm.Form {
	switch f {
	case NFD:
		return norm.NFD
	case NFKC:
		return norm.NFKC
	case NFKD:
		return norm.NFKD
	default:
		return norm.NFC
	}
}

// Config is the typed configuration object for building a Mapper.
type Config struct {
	// NormalizationForm is applied to template output before IRI
	// percent-encoding. Default NFC.
	NormalizationForm NormalizationForm `yaml:"normalizationForm"`

	// IRIUpperCasePercentEncoding selects upper-case (default) or
	// lower-case hex digits in percent-encoded IRI output.
	IRIUpperCasePercentEncoding bool `yaml:"iriUpperCasePercentEncoding"`

	// FileSourceBaseDir and ClasspathBaseDir root the file-system and
	// classpath resolvers that mapper.DefaultResolver builds, tried in that
	// order; callers wanting custom resolver behavior pass their own
	// source.Resolver to mapper.Build instead.
	FileSourceBaseDir string `yaml:"fileSourceBaseDir"`
	ClasspathBaseDir  string `yaml:"classpathBaseDir"`

	// JoinStoreSpillDir, when non-empty, selects the bbolt-backed spillable
	// join store provider (child and parent side) rooted at this directory;
	// empty means the in-memory default.
	JoinStoreSpillDir string `yaml:"joinStoreSpillDir"`

	// MapToGraphTimeout bounds MapToGraph's overall duration. Default 30s.
	MapToGraphTimeout time.Duration `yaml:"mapToGraphTimeout"`

	// StrictMode promotes TermGenerationError from a per-record warning to
	// a fatal pipeline error (spec §7 "design hook").
	StrictMode bool `yaml:"strictMode"`

	// ContinueOnPipelineError, when true, lets sibling pipelines keep
	// running after one pipeline fails fatally instead of cancelling them
	// (spec §7 propagation rules).
	ContinueOnPipelineError bool `yaml:"continueOnPipelineError"`
}

// Default returns a Config with every option at its spec-mandated default.
func Default() *Config {
	return &Config{
		NormalizationForm:           NFC,
		IRIUpperCasePercentEncoding: true,
		MapToGraphTimeout:           30 * time.Second,
	}
}

// Load reads a YAML configuration document from path, overlaying it onto
// Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Builder incrementally constructs a Config, mirroring the teacher's
// preference for small constructor functions over configuration structs
// built by reflection.
type Builder struct {
	cfg Config
}

// NewBuilder starts a Builder from the spec defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: *Default()}
}

func (b *Builder) NormalizationForm(f NormalizationForm) *Builder {
	b.cfg.NormalizationForm = f
	return b
}

func (b *Builder) LowerCasePercentEncoding() *Builder {
	b.cfg.IRIUpperCasePercentEncoding = false
	return b
}

func (b *Builder) FileSourceBaseDir(dir string) *Builder {
	b.cfg.FileSourceBaseDir = dir
	return b
}

func (b *Builder) ClasspathBaseDir(dir string) *Builder {
	b.cfg.ClasspathBaseDir = dir
	return b
}

func (b *Builder) JoinStoreSpillDir(dir string) *Builder {
	b.cfg.JoinStoreSpillDir = dir
	return b
}

func (b *Builder) MapToGraphTimeout(d time.Duration) *Builder {
	b.cfg.MapToGraphTimeout = d
	return b
}

func (b *Builder) Strict() *Builder {
	b.cfg.StrictMode = true
	return b
}

func (b *Builder) ContinueOnPipelineError() *Builder {
	b.cfg.ContinueOnPipelineError = true
	return b
}

func (b *Builder) Build() *Config {
	cfg := b.cfg
	return &cfg
}
