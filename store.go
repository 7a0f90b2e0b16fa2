package pvec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/minio/blake2b-simd"
	"golang.org/x/sync/errgroup"
)

// DefaultStoreConcurrency is how many nodes MakeRoot stores at once unless
// RemoteConfig says otherwise.
const DefaultStoreConcurrency = 40

var (
	defaultUnmarshal = json.Unmarshal
	defaultMarshal   = json.Marshal
)

// Persist is the interface for loading and storing (serialized) trie nodes.
// The given string identity corresponds to the content, which is never
// modified.
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// RemoteConfig controls how nodes are persisted and loaded.
type RemoteConfig struct {
	// StoreImmutablePartsWith is used to store and load serialized nodes.
	StoreImmutablePartsWith Persist

	// Marshal function for values, defaults to JSON.
	Marshal func(interface{}) ([]byte, error)

	// Unmarshal function for values, defaults to JSON. It is given a
	// pointer to the vector's element type.
	Unmarshal func([]byte, interface{}) error

	// NodeCache remembers nodes already stored or loaded, so that versions
	// sharing structure only store and load what differs. It may be shared
	// by any number of vectors.
	NodeCache NodeCache

	// Logger receives debug traces of stored and loaded nodes. Defaults to
	// discarding them.
	Logger *slog.Logger

	// StoreConcurrency limits concurrent Store calls; 0 means
	// DefaultStoreConcurrency.
	StoreConcurrency int
}

// Root identifies a version of a vector whose nodes are accessible in the
// persistent store.
type Root struct {
	Link   *string `json:",omitempty"`
	Tail   *string `json:",omitempty"`
	Origin int
	Size   int
	Level  int
}

type remote struct {
	persist     Persist
	marshal     func(interface{}) ([]byte, error)
	unmarshal   func([]byte, interface{}) error
	cache       NodeCache
	logger      *slog.Logger
	concurrency int
}

func (config *RemoteConfig) resolve() (*remote, error) {
	if config == nil || config.StoreImmutablePartsWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set RemoteConfig.StoreImmutablePartsWith")
	}
	r := remote{
		persist:     config.StoreImmutablePartsWith,
		marshal:     config.Marshal,
		unmarshal:   config.Unmarshal,
		cache:       config.NodeCache,
		logger:      config.Logger,
		concurrency: config.StoreConcurrency,
	}
	if r.marshal == nil {
		r.marshal = defaultMarshal
	}
	if r.unmarshal == nil {
		r.unmarshal = defaultUnmarshal
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultStoreConcurrency
	}
	return &r, nil
}

func nodeName(encoded []byte) string {
	sum := blake2b.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// MakeRoot stores every node of the vector that the store doesn't already
// have, and returns a Root from which LoadVector can recreate it.
// Transient vectors must be made persistent first.
func (v *Vector[T]) MakeRoot(ctx context.Context, config *RemoteConfig) (*Root, error) {
	if v.IsTransient() {
		return nil, fmt.Errorf("make root: %w", ErrTransient)
	}
	r, err := config.resolve()
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	s := storer[T]{remote: r, g: g, ctx: gctx}
	root := Root{Origin: v.origin, Size: v.size, Level: v.level}
	if v.root != nil {
		link, err := s.store(v.root, v.level)
		if err != nil {
			return nil, fmt.Errorf("store root: %w", errors.Join(err, g.Wait()))
		}
		root.Link = &link
	}
	if v.tail != nil {
		link, err := s.store(v.tail, 0)
		if err != nil {
			return nil, fmt.Errorf("store tail: %w", errors.Join(err, g.Wait()))
		}
		root.Tail = &link
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "made root", "size", v.Len(), "level", v.level)
	return &root, nil
}

type storer[T any] struct {
	*remote
	g   *errgroup.Group
	ctx context.Context
}

// store encodes n and its descendants, queueing a Store for each one not
// already known to be stored, and returns n's name.
func (s *storer[T]) store(n *node[T], level int) (string, error) {
	if s.cache != nil {
		if name, ok := s.cache.Get(n); ok {
			if str, ok := name.(string); ok {
				return str, nil
			}
		}
	}
	var e *encodedNode
	var err error
	if level == 0 {
		e, err = encodeLeaf(n, s.marshal)
		if err != nil {
			return "", err
		}
	} else {
		e = &encodedNode{kind: kindBranch}
		for i, c := range n.children {
			if c == nil {
				continue
			}
			name, err := s.store(c, level-shift)
			if err != nil {
				return "", err
			}
			e.present |= 1 << uint(i)
			e.payloads = append(e.payloads, []byte(name))
		}
	}
	encoded := e.marshal()
	name := nodeName(encoded)
	s.g.Go(func() error {
		if s.cache != nil && s.cache.Contains(name) {
			s.cache.Add(n, name)
			return nil
		}
		err := s.persist.Store(s.ctx, name, encoded)
		if err != nil {
			return fmt.Errorf("persist store %s: %w", name, err)
		}
		s.logger.DebugContext(s.ctx, "stored node", "name", name, "level", level, "bytes", len(encoded))
		if s.cache != nil {
			s.cache.Add(name, n)
			s.cache.Add(n, name)
		}
		return nil
	})
	return name, nil
}

// LoadVector loads the vector identified by root. Every node is checked
// against its name as it is loaded.
func LoadVector[T any](ctx context.Context, root *Root, config *RemoteConfig) (*Vector[T], error) {
	r, err := config.resolve()
	if err != nil {
		return nil, err
	}
	if root.Origin < 0 || root.Origin > root.Size || root.Size > maxSize ||
		root.Level < 0 || root.Level >= bits.UintSize || root.Level%shift != 0 ||
		(root.Link != nil && root.Level < shift) {
		return nil, fmt.Errorf("root origin=%d size=%d level=%d: %w",
			root.Origin, root.Size, root.Level, ErrCorruptNode)
	}
	if root.Size == root.Origin {
		return Empty[T](), nil
	}
	l := loader[T]{r}
	v := Vector[T]{origin: root.Origin, size: root.Size, level: root.Level}
	if root.Link != nil {
		v.root, err = l.load(ctx, *root.Link, root.Level)
		if err != nil {
			return nil, fmt.Errorf("load root: %w", err)
		}
	}
	if root.Tail != nil {
		v.tail, err = l.load(ctx, *root.Tail, 0)
		if err != nil {
			return nil, fmt.Errorf("load tail: %w", err)
		}
	}
	return &v, nil
}

type loader[T any] struct {
	*remote
}

func (l loader[T]) load(ctx context.Context, name string, level int) (*node[T], error) {
	if l.cache != nil {
		if cached, ok := l.cache.Get(name); ok {
			if n, ok := cached.(*node[T]); ok {
				return n, nil
			}
		}
	}
	encoded, err := l.persist.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", name, err)
	}
	if nodeName(encoded) != name {
		return nil, fmt.Errorf("node %s: content does not match name: %w", name, ErrCorruptNode)
	}
	e, err := unmarshalEncodedNode(encoded)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	var n *node[T]
	switch {
	case level == 0 && e.kind == kindLeaf:
		n, err = decodeLeaf[T](e, l.unmarshal)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
	case level > 0 && e.kind == kindBranch:
		n = newBranch[T](nil)
		j := 0
		for i := 0; i < branchFactor; i++ {
			if e.present&(1<<uint(i)) == 0 {
				continue
			}
			n.children[i], err = l.load(ctx, string(e.payloads[j]), level-shift)
			if err != nil {
				return nil, err
			}
			j++
		}
	default:
		return nil, fmt.Errorf("node %s of kind %d at level %d: %w", name, e.kind, level, ErrCorruptNode)
	}
	l.logger.DebugContext(ctx, "loaded node", "name", name, "level", level)
	if l.cache != nil {
		l.cache.Add(name, n)
		l.cache.Add(n, name)
	}
	return n, nil
}
