package schema

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestVersions(t *testing.T) {
	s := &Schema{
		repo: fstest.MapFS{
			"sql/10/a.sql":    {Data: []byte("select 1;")},
			"sql/2/a.sql":     {Data: []byte("select 1;")},
			"sql/1/a.sql":     {Data: []byte("select 1;")},
			"sql/draft/a.sql": {Data: []byte("select 1;")},
			"sql/README":      {Data: []byte("not a version")},
		},
	}

	vs, err := s.versions()
	if err != nil {
		t.Fatal(err)
	}

	want := []version{
		{Version: 1, Root: "sql/1"},
		{Version: 2, Root: "sql/2"},
		{Version: 10, Root: "sql/10"},
	}
	if diff := cmp.Diff(want, vs); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != 10 {
		t.Errorf("latest = %d", latest)
	}
}

func TestEmbeddedRepository(t *testing.T) {
	s := &Schema{repo: repository}
	vs, err := s.versions()
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) == 0 || vs[0].Version != 1 {
		t.Errorf("unexpected versions: %+v", vs)
	}
}

func TestWithRepository(t *testing.T) {
	repo := fstest.MapFS{
		"sql/3/a.sql": {Data: []byte("select 1;")},
	}
	s := New(nil, nil, WithRepository(repo))

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != 3 {
		t.Errorf("latest = %d", latest)
	}
}
