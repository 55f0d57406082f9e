package digest

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names a content digest function.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Digest is an algorithm-tagged content hash. The zero value means
// "no digest known" and never equals a computed digest.
type Digest struct {
	Algorithm Algorithm
	Sum       string // lowercase hex
}

// IsZero reports whether no digest is set.
func (d Digest) IsZero() bool {
	return d.Sum == ""
}

// String returns the canonical "alg:hex" form.
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return string(d.Algorithm) + ":" + d.Sum
}

// Equal reports whether both digests use the same algorithm and sum.
func (d Digest) Equal(other Digest) bool {
	return !d.IsZero() && d.Algorithm == other.Algorithm && d.Sum == other.Sum
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Bare hex is
// interpreted by length (40 = sha1, 64 = sha256).
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text), "")
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// New returns a hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", a)
	}
}

func (a Algorithm) hexLen() int {
	switch a {
	case SHA1:
		return 40
	case SHA256, BLAKE3:
		return 64
	default:
		return 0
	}
}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if a.hexLen() == 0 {
		return "", fmt.Errorf("unsupported digest algorithm %q", s)
	}
	return a, nil
}

// Parse parses "alg:hex" or bare hex. Bare hex uses def when set,
// otherwise the algorithm is inferred from the length. An empty string
// yields the zero Digest.
func Parse(s string, def Algorithm) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, nil
	}

	alg := def
	sum := s
	if name, rest, ok := strings.Cut(s, ":"); ok {
		a, err := ParseAlgorithm(name)
		if err != nil {
			return Digest{}, err
		}
		alg, sum = a, rest
	} else if alg == "" {
		switch len(s) {
		case 40:
			alg = SHA1
		case 64:
			alg = SHA256
		default:
			return Digest{}, fmt.Errorf("cannot infer digest algorithm from %d hex characters", len(s))
		}
	}

	sum = strings.ToLower(sum)
	if len(sum) != alg.hexLen() {
		return Digest{}, fmt.Errorf("%s digest is %d hex characters, want %d", alg, len(sum), alg.hexLen())
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return Digest{}, fmt.Errorf("parsing %s digest: %w", alg, err)
	}
	return Digest{Algorithm: alg, Sum: sum}, nil
}

// FromHash finalizes h into a Digest.
func FromHash(alg Algorithm, h hash.Hash) Digest {
	return Digest{Algorithm: alg, Sum: hex.EncodeToString(h.Sum(nil))}
}

// Reader computes the digest of everything read from r.
func Reader(alg Algorithm, r io.Reader) (Digest, int64, error) {
	h, err := alg.New()
	if err != nil {
		return Digest{}, 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, err
	}
	return FromHash(alg, h), n, nil
}

// File streams the file at path through the algorithm.
func File(alg Algorithm, path string) (Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	d, n, err := Reader(alg, f)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return d, n, nil
}
