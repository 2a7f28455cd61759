package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"gopkg.in/yaml.v3"
)

// KeyDistribution represents how a tenant picks items from its key space
type KeyDistribution int

const (
	KeyDistUniform KeyDistribution = iota // Every item equally likely (with replacement)
	KeyDistZipf                           // Item i drawn with probability proportional to 1/(1+i)^s
)

// DefaultZipfExponent is used when zipf is selected without an exponent
const DefaultZipfExponent = 1.1

// String returns the string representation of KeyDistribution
func (d KeyDistribution) String() string {
	switch d {
	case KeyDistUniform:
		return "uniform"
	case KeyDistZipf:
		return "zipf"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ParseKeyDistribution parses a string into a KeyDistribution
func ParseKeyDistribution(s string) (KeyDistribution, error) {
	switch s {
	case "uniform", "":
		return KeyDistUniform, nil
	case "zipf":
		return KeyDistZipf, nil
	default:
		return KeyDistUniform, fmt.Errorf("invalid key distribution: %s (must be 'uniform' or 'zipf')", s)
	}
}

// MarshalJSON implements json.Marshaler for KeyDistribution
func (d KeyDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler for KeyDistribution
func (d *KeyDistribution) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKeyDistribution(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for KeyDistribution
func (d KeyDistribution) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for KeyDistribution
func (d *KeyDistribution) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKeyDistribution(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// KeySampler draws item indexes in [0, size) for a single tenant
type KeySampler interface {
	Next() int
}

// UniformSampler samples items uniformly with replacement
type UniformSampler struct {
	rng  *rand.Rand
	size int
}

func (s *UniformSampler) Next() int {
	if s.size <= 1 {
		return 0
	}
	return s.rng.Intn(s.size)
}

// ZipfSampler samples items with a power-law skew toward low indexes
type ZipfSampler struct {
	zipf *rand.Zipf
}

func (s *ZipfSampler) Next() int {
	return int(s.zipf.Uint64())
}

// NewKeySampler creates a sampler over [0, size) sharing the caller's rng.
// Invalid zipf exponents fall back to DefaultZipfExponent.
func NewKeySampler(dist KeyDistribution, zipfExponent float64, rng *rand.Rand, size int) KeySampler {
	switch dist {
	case KeyDistZipf:
		if !(zipfExponent > 1) || math.IsInf(zipfExponent, 0) {
			zipfExponent = DefaultZipfExponent
		}
		if size <= 1 {
			return &UniformSampler{rng: rng, size: size}
		}
		return &ZipfSampler{zipf: rand.NewZipf(rng, zipfExponent, 1, uint64(size-1))}
	default:
		return &UniformSampler{rng: rng, size: size}
	}
}

// newRand creates a seeded random source; seed 0 draws a seed from the global source
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}
