package archive

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"docarchive/internal/model"
	"docarchive/internal/store"
)

const DefaultName = "archives"

// DefaultExclude lists collections that are never intercepted by default.
var DefaultExclude = []string{"roles", "role-assignment"}

// Config is a snapshot of the archive settings.
type Config struct {
	// Name of the collection archived documents are moved into.
	Name string `json:"name"`
	// InterceptDelete routes ordinary deletes through Archive.
	InterceptDelete bool `json:"overrideRemove"`
	// Exclude lists collection names whose deletes are always permanent.
	Exclude []string `json:"exclude"`
	// RestoreOriginalID makes restore reuse the archived originalId instead of
	// asking the target collection for a fresh identifier.
	RestoreOriginalID bool `json:"restoreOriginalId"`
}

func DefaultConfig() Config {
	return Config{
		Name:              DefaultName,
		InterceptDelete:   true,
		Exclude:           slices.Clone(DefaultExclude),
		RestoreOriginalID: true,
	}
}

// Excludes reports whether deletes on the named collection bypass archiving.
func (c Config) Excludes(collection string) bool {
	return slices.Contains(c.Exclude, collection)
}

func (c Config) clone() Config {
	c.Exclude = slices.Clone(c.Exclude)
	if c.Exclude == nil {
		c.Exclude = []string{}
	}
	return c
}

// Options is a partial configuration. Nil fields are left unchanged by
// Configure; a non-nil empty Exclude clears the exclusion list.
type Options struct {
	Name              *string
	InterceptDelete   *bool
	Exclude           []string
	RestoreOriginalID *bool
}

// ValidationError reports an option with the wrong shape or value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid archive option %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == model.ErrValidation }

func (o Options) validate() error {
	if o.Name != nil {
		if err := store.ValidateCollectionName(*o.Name); err != nil {
			return &ValidationError{Field: "name", Reason: err.Error()}
		}
	}
	for i, name := range o.Exclude {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Field: "exclude", Reason: fmt.Sprintf("entry %d is empty", i)}
		}
	}
	return nil
}

// ParseOptions validates an untyped option map, as decoded from JSON or TOML.
// Recognized keys are name (string), overrideRemove (bool), exclude (array of
// strings) and restoreOriginalId (bool); anything else is rejected.
func ParseOptions(raw map[string]any) (Options, error) {
	var opts Options

	for key, value := range raw {
		switch key {
		case "name":
			s, ok := value.(string)
			if !ok {
				return Options{}, &ValidationError{Field: key, Reason: fmt.Sprintf("expected string, got %T", value)}
			}
			opts.Name = &s
		case "overrideRemove":
			b, ok := value.(bool)
			if !ok {
				return Options{}, &ValidationError{Field: key, Reason: fmt.Sprintf("expected boolean, got %T", value)}
			}
			opts.InterceptDelete = &b
		case "restoreOriginalId":
			b, ok := value.(bool)
			if !ok {
				return Options{}, &ValidationError{Field: key, Reason: fmt.Sprintf("expected boolean, got %T", value)}
			}
			opts.RestoreOriginalID = &b
		case "exclude":
			list, err := stringList(value)
			if err != nil {
				return Options{}, &ValidationError{Field: key, Reason: err.Error()}
			}
			opts.Exclude = list
		default:
			return Options{}, &ValidationError{Field: key, Reason: "unknown option"}
		}
	}

	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func stringList(value any) ([]string, error) {
	switch t := value.(type) {
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array of strings, got %T", value)
	}
}

// Settings is a concurrency-safe holder for the archive configuration.
// Readers always see a complete snapshot; concurrent Configure calls are
// last-write-wins.
type Settings struct {
	mu  sync.RWMutex
	cfg Config
}

func NewSettings(cfg Config) *Settings {
	return &Settings{cfg: cfg.clone()}
}

// Get returns a copy of the current configuration.
func (s *Settings) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Configure merges opts into the current configuration and returns the
// result. Invalid options leave the configuration unchanged.
func (s *Settings) Configure(opts Options) (Config, error) {
	if err := opts.validate(); err != nil {
		return Config{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Name != nil {
		s.cfg.Name = *opts.Name
	}
	if opts.InterceptDelete != nil {
		s.cfg.InterceptDelete = *opts.InterceptDelete
	}
	if opts.Exclude != nil {
		s.cfg.Exclude = slices.Clone(opts.Exclude)
	}
	if opts.RestoreOriginalID != nil {
		s.cfg.RestoreOriginalID = *opts.RestoreOriginalID
	}
	return s.cfg.clone(), nil
}
