package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Register_ByURL(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.NoError(t, r.Register(Database{Name: "main", URL: "postgres://app:secret@db:5432/app"}))

	db, err := r.Get("main")
	require.NoError(t, err)
	require.Equal(t, "postgres", db.Driver)
	require.Equal(t, "postgres://app:secret@db:5432/app", db.URL)
}

func Test_Register_ByParams_BuildsURL(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.NoError(t, r.Register(Database{
		Name:     "main",
		Driver:   "postgresql",
		User:     "app",
		Password: "secret",
		Host:     "db",
		Port:     5432,
		DB:       "app",
	}))

	db, err := r.Get("main")
	require.NoError(t, err)
	require.Equal(t, "postgresql://app:secret@db:5432/app", db.URL)
}

func Test_Register_DefaultLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	_, err := r.Get("")
	require.ErrorIs(t, err, ErrNoDefault)

	require.NoError(t, r.Register(Database{URL: "sqlite:///tmp/app.db", Default: true}))

	db, err := r.Get("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", db.Driver)
}

func Test_Register_SecondDefaultDenied(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.NoError(t, r.Register(Database{Name: "a", URL: "sqlite:///a.db", Default: true}))
	err := r.Register(Database{Name: "b", URL: "sqlite:///b.db", Default: true})
	require.ErrorIs(t, err, ErrDefaultAlreadyRegistered)
}

func Test_Register_DuplicateNameDenied(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.NoError(t, r.Register(Database{Name: "main", URL: "sqlite:///a.db"}))
	err := r.Register(Database{Name: "main", URL: "sqlite:///b.db"})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func Test_Register_UnnamedNonDefaultDenied(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	err := r.Register(Database{URL: "sqlite:///a.db"})
	require.ErrorIs(t, err, ErrUnnamed)
}

func Test_Register_Validation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		db   Database
		want error
	}{
		{
			name: "url and params together",
			db:   Database{Name: "x", URL: "postgres://u:p@h:5432/d", Host: "other"},
			want: ErrConflictingParams,
		},
		{
			name: "neither url nor params",
			db:   Database{Name: "x"},
			want: ErrConflictingParams,
		},
		{
			name: "partial params",
			db:   Database{Name: "x", Driver: "postgres", User: "u"},
			want: ErrConflictingParams,
		},
		{
			name: "url without scheme",
			db:   Database{Name: "x", URL: "not-a-url"},
			want: ErrInvalidURL,
		},
		{
			name: "unsupported driver",
			db:   Database{Name: "x", URL: "mysql://u:p@h:3306/d"},
			want: ErrUnsupportedDriver,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := NewRegistry().Register(tc.db)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func Test_Reset(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.NoError(t, r.Register(Database{Name: "main", URL: "sqlite:///a.db", Default: true}))
	r.Reset()

	_, err := r.Get("main")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get("")
	require.ErrorIs(t, err, ErrNoDefault)

	// the name is free again after a reset
	require.NoError(t, r.Register(Database{Name: "main", URL: "sqlite:///b.db", Default: true}))
}
