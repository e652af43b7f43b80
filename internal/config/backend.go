package config

// ConfigBackend persists the non-secret keys users change with
// `sentiguard config set`. Secrets never go through it.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
	// Location describes where values are kept, for `config show`.
	Location() string
}
