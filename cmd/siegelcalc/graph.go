package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"siegelcore/pkg/algebra"
	"siegelcore/pkg/construction"
)

// Graph is a named construction set decoded from a graph file. Names exist
// only at the CLI boundary: the engine identifies constructions by canonical
// key, the file by the names its author chose.
type Graph struct {
	order []string
	nodes map[string]construction.Node
	names map[string]string
	roots []string
}

// graphFile is the on-disk schema. Constructions are declared in order and
// may only reference earlier declarations, which keeps decoding single-pass
// and cycles unrepresentable. Roots are optional; when omitted, every
// construction no other construction references becomes a root.
type graphFile struct {
	Constructions []constructionSpec `json:"constructions"`
	Roots         []string           `json:"roots,omitempty"`
}

type constructionSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	// leaf
	SymWeight    *int              `json:"sym_weight,omitempty"`
	Combinations []json.RawMessage `json:"combinations,omitempty"`
	Tag          string            `json:"tag,omitempty"`

	// leaf and divide
	Inc *int `json:"inc,omitempty"`

	// hecke and mul
	Base string `json:"base,omitempty"`
	M    int    `json:"m,omitempty"`

	// divide
	Bases   []string        `json:"bases,omitempty"`
	Coeffs  []string        `json:"coeffs,omitempty"`
	Divisor json.RawMessage `json:"divisor,omitempty"`

	// mul
	Scalar json.RawMessage `json:"scalar,omitempty"`
}

// LoadGraph reads and decodes a graph file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}
	g, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	return g, nil
}

// ParseGraph decodes a graph document into validated construction nodes.
func ParseGraph(data []byte) (*Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var file graphFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	if len(file.Constructions) == 0 {
		return nil, configError("graph declares no constructions")
	}

	g := &Graph{
		nodes: make(map[string]construction.Node, len(file.Constructions)),
		names: make(map[string]string, len(file.Constructions)),
	}
	referenced := make(map[string]bool)
	for i, spec := range file.Constructions {
		if spec.Name == "" {
			return nil, configError("construction %d has no name", i)
		}
		if _, dup := g.nodes[spec.Name]; dup {
			return nil, configError("duplicate construction name %q", spec.Name)
		}
		n, refs, err := g.build(spec)
		if err != nil {
			return nil, fmt.Errorf("construction %q: %w", spec.Name, err)
		}
		g.order = append(g.order, spec.Name)
		g.nodes[spec.Name] = n
		g.names[n.Key().Hash()] = spec.Name
		for _, r := range refs {
			referenced[r] = true
		}
	}

	if len(file.Roots) > 0 {
		for _, name := range file.Roots {
			if _, ok := g.nodes[name]; !ok {
				return nil, configError("root %q is not a declared construction", name)
			}
			g.roots = append(g.roots, name)
		}
	} else {
		for _, name := range g.order {
			if !referenced[name] {
				g.roots = append(g.roots, name)
			}
		}
	}
	return g, nil
}

// build decodes one construction and returns it together with the names it
// references.
func (g *Graph) build(spec constructionSpec) (construction.Node, []string, error) {
	switch spec.Kind {
	case "leaf":
		if spec.SymWeight == nil {
			return nil, nil, configError("leaf needs sym_weight")
		}
		if spec.Inc == nil {
			return nil, nil, configError("leaf needs inc")
		}
		if len(spec.Combinations) == 0 {
			return nil, nil, configError("leaf needs combinations")
		}
		combs := make([]construction.ScalarCombination, len(spec.Combinations))
		for i, raw := range spec.Combinations {
			c, err := decodeCombination(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("combination %d: %w", i, err)
			}
			combs[i] = c
		}
		n, err := construction.NewLeaf(*spec.SymWeight, combs, *spec.Inc, spec.Tag)
		return n, nil, err

	case "hecke":
		base, err := g.ref(spec.Base)
		if err != nil {
			return nil, nil, err
		}
		n, err := construction.NewHeckeTransform(base, spec.M)
		return n, []string{spec.Base}, err

	case "divide":
		if len(spec.Bases) == 0 {
			return nil, nil, configError("divide needs bases")
		}
		bases := make([]construction.Node, len(spec.Bases))
		for i, name := range spec.Bases {
			b, err := g.ref(name)
			if err != nil {
				return nil, nil, err
			}
			bases[i] = b
		}
		coeffs := make([]*big.Rat, len(spec.Coeffs))
		for i, s := range spec.Coeffs {
			c, err := parseRat(s)
			if err != nil {
				return nil, nil, fmt.Errorf("coefficient %d: %w", i, err)
			}
			coeffs[i] = c
		}
		if len(spec.Divisor) == 0 {
			return nil, nil, configError("divide needs a divisor")
		}
		divisor, err := decodeCombination(spec.Divisor)
		if err != nil {
			return nil, nil, fmt.Errorf("divisor: %w", err)
		}
		inc := 0
		if spec.Inc != nil {
			inc = *spec.Inc
		}
		n, err := construction.NewLinearDivide(bases, coeffs, divisor, inc)
		return n, spec.Bases, err

	case "mul":
		base, err := g.ref(spec.Base)
		if err != nil {
			return nil, nil, err
		}
		if len(spec.Scalar) == 0 {
			return nil, nil, configError("mul needs a scalar")
		}
		scalar, err := decodeCombination(spec.Scalar)
		if err != nil {
			return nil, nil, fmt.Errorf("scalar: %w", err)
		}
		n, err := construction.NewScalarMultiply(base, scalar)
		return n, []string{spec.Base}, err

	case "":
		return nil, nil, configError("missing kind")
	default:
		return nil, nil, configError("unknown kind %q", spec.Kind)
	}
}

func (g *Graph) ref(name string) (construction.Node, error) {
	if name == "" {
		return nil, configError("missing base reference")
	}
	n, ok := g.nodes[name]
	if !ok {
		return nil, configError("reference to undeclared construction %q", name)
	}
	return n, nil
}

// Names returns the declared construction names in file order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Node returns the construction declared under name.
func (g *Graph) Node(name string) (construction.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Roots returns the root constructions in declaration order.
func (g *Graph) Roots() []construction.Node {
	out := make([]construction.Node, len(g.roots))
	for i, name := range g.roots {
		out[i] = g.nodes[name]
	}
	return out
}

// RootNames returns the root names in declaration order.
func (g *Graph) RootNames() []string {
	return append([]string(nil), g.roots...)
}

// NameByHash returns the declared name of the construction with the given
// identity hash, or the empty string.
func (g *Graph) NameByHash(hash string) string {
	return g.names[hash]
}

// decodeCombination accepts either a bare generator list, meaning the plain
// monomial with coefficient one, or {"terms": [{"gens": [...], "coeff":
// "p/q"}, ...]}.
func decodeCombination(raw json.RawMessage) (construction.ScalarCombination, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var gens []int
		if err := json.Unmarshal(trimmed, &gens); err != nil {
			return construction.ScalarCombination{}, fmt.Errorf("parsing generator list: %w", err)
		}
		return construction.Monomial(gens...)
	}
	var spec struct {
		Terms []struct {
			Gens  []int  `json:"gens"`
			Coeff string `json:"coeff"`
		} `json:"terms"`
	}
	if err := json.Unmarshal(trimmed, &spec); err != nil {
		return construction.ScalarCombination{}, fmt.Errorf("parsing combination: %w", err)
	}
	terms := make([]algebra.ScalarTerm, 0, len(spec.Terms))
	for i, t := range spec.Terms {
		coeff := big.NewRat(1, 1)
		if t.Coeff != "" {
			c, err := parseRat(t.Coeff)
			if err != nil {
				return construction.ScalarCombination{}, fmt.Errorf("term %d: %w", i, err)
			}
			coeff = c
		}
		terms = append(terms, algebra.ScalarTerm{Gens: t.Gens, Coeff: coeff})
	}
	return construction.Polynomial(terms)
}

func parseRat(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, configError("invalid rational %q", s)
	}
	return r, nil
}

func configError(format string, args ...any) error {
	return construction.ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
