// Package config keeps a registry of named database configurations so
// callers can open transactions against "the default database" or a
// database known by name, without threading connection strings through
// their code.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

var (
	ErrNotFound                 = errors.New("config: database is not registered")
	ErrNoDefault                = errors.New("config: no database registered as default")
	ErrAlreadyRegistered        = errors.New("config: database is already registered")
	ErrDefaultAlreadyRegistered = errors.New("config: a default database is already registered")
	ErrUnnamed                  = errors.New("config: non-default database needs a name")
	ErrConflictingParams        = errors.New("config: provide either a url or the full parameter set, not both")
	ErrInvalidURL               = errors.New("config: invalid database url")
	ErrUnsupportedDriver        = errors.New("config: unsupported driver")
)

// Database holds the connection settings registered under a name.
// Either URL is set, or the discrete fields are; Register fills the
// missing representation.
type Database struct {
	Name     string
	URL      string
	Driver   string
	User     string
	Password string
	Host     string
	Port     int
	DB       string
	Default  bool
	ReadOnly bool
}

var supportedDrivers = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"sqlite":     true,
}

var urlScheme = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+._-]*)://`)

// Registry stores database configurations. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	mu          sync.RWMutex
	databases   map[string]Database
	defaultName string
	hasDefault  bool
}

func NewRegistry() *Registry {
	return &Registry{databases: map[string]Database{}}
}

// Register validates and stores db. Exactly one registered database may
// carry the Default flag, and a non-default database must be named.
func (r *Registry) Register(db Database) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.databases[db.Name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, db.Name)
	}
	if db.Default {
		if r.hasDefault {
			return fmt.Errorf("%w: %q cannot replace %q", ErrDefaultAlreadyRegistered, db.Name, r.defaultName)
		}
	} else if db.Name == "" {
		return ErrUnnamed
	}

	normalized, err := normalize(db)
	if err != nil {
		return err
	}

	r.databases[db.Name] = normalized
	if db.Default {
		r.defaultName = db.Name
		r.hasDefault = true
	}
	return nil
}

// Get returns the database registered under name; an empty name means
// the default database.
func (r *Registry) Get(name string) (Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if !r.hasDefault {
			return Database{}, ErrNoDefault
		}
		name = r.defaultName
	}
	db, ok := r.databases[name]
	if !ok {
		return Database{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return db, nil
}

// Reset clears all registrations.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.databases = map[string]Database{}
	r.defaultName = ""
	r.hasDefault = false
}

func normalize(db Database) (Database, error) {
	hasParams := db.Driver != "" || db.User != "" || db.Password != "" ||
		db.Host != "" || db.Port != 0 || db.DB != ""

	switch {
	case db.URL != "" && hasParams:
		return Database{}, ErrConflictingParams
	case db.URL == "" && !hasParams:
		return Database{}, ErrConflictingParams
	case db.URL == "":
		if db.Driver == "" || db.User == "" || db.Password == "" ||
			db.Host == "" || db.Port == 0 || db.DB == "" {
			return Database{}, ErrConflictingParams
		}
		db.URL = fmt.Sprintf("%s://%s:%s@%s:%d/%s",
			db.Driver, db.User, db.Password, db.Host, db.Port, db.DB)
	default:
		m := urlScheme.FindStringSubmatch(db.URL)
		if m == nil {
			return Database{}, fmt.Errorf("%w: %q has no driver scheme", ErrInvalidURL, db.URL)
		}
		db.Driver = m[1]
	}

	if !supportedDrivers[db.Driver] {
		return Database{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, db.Driver)
	}
	return db, nil
}

// Default is the process-wide registry used by the package-level
// helpers.
var Default = NewRegistry()

func Register(db Database) error        { return Default.Register(db) }
func Get(name string) (Database, error) { return Default.Get(name) }
func Reset()                            { Default.Reset() }
