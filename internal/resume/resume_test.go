package resume

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"magnetctl/internal/domain"
)

func testID(b byte) domain.Identity {
	var id domain.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

// exerciseStore runs the shared contract against any Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	id := testID(0xab)

	if _, err := s.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, id, []byte("one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, id, []byte("two")); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, []byte("two")) {
		t.Fatalf("Load = %q, want %q", got, "two")
	}
	if err := s.Save(ctx, testID(0x01), []byte("other")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("List = %v, want 2 ids", ids)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v, want ErrNotFound", err)
	}
}

func TestDirStore(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	exerciseStore(t, s)
}

func TestDirStoreLayout(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirStore(root)
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	id := testID(0x0f)
	if err := s.Save(context.Background(), id, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(root, ".resume", id.Hex()+".resume")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("resume file not at %s: %v", want, err)
	}
	// stray files are not listed
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "zz.resume"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := s.List(context.Background())
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("List = %v, %v", ids, err)
	}
	if err := s.Delete(context.Background(), testID(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing = %v, want ErrNotFound", err)
	}
}

func TestDirStoreSaveLeavesNoTempFiles(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	id := testID(0x22)
	for _, blob := range []string{"a", "b", "c"} {
		if err := s.Save(context.Background(), id, []byte(blob)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != id.Hex()+Suffix {
		t.Fatalf("resume dir = %v, want only %s%s", entries, id.Hex(), Suffix)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "resume.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestCodecRoundTrip(t *testing.T) {
	in := domain.Params{
		Identity:       testID(7),
		Name:           "ubuntu.iso",
		SavePath:       "/data",
		Trackers:       []string{"udp://a.example:80", "http://b.example/announce"},
		InfoBytes:      []byte("d4:name3:fooe"),
		UploadLimit:    1000,
		DownloadLimit:  2000,
		MaxConnections: 25,
		Flags:          domain.FlagSequential | domain.FlagAutoManaged,
		Origin:         "magnet:?xt=urn:btih:0707",
	}
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Identity != in.Identity || out.Name != in.Name || out.SavePath != in.SavePath ||
		out.MaxConnections != in.MaxConnections || out.Flags != in.Flags || out.Origin != in.Origin ||
		!bytes.Equal(out.InfoBytes, in.InfoBytes) || len(out.Trackers) != 2 {
		t.Fatalf("Decode = %+v, want %+v", out, in)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("garbage"), []byte("d7:versioni9ee")} {
		if _, err := Decode(b); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) = %v, want ErrMalformed", b, err)
		}
	}
}

func TestLoadParams(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := testID(3)

	if _, ok, err := LoadParams(ctx, s, id); ok || err != nil {
		t.Fatalf("missing: ok=%v err=%v", ok, err)
	}
	if err := s.Save(ctx, id, []byte("junk")); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := LoadParams(ctx, s, id); ok || err == nil {
		t.Fatalf("malformed: ok=%v err=%v", ok, err)
	}
	b, _ := Encode(domain.Params{Identity: id, Name: "n"})
	if err := s.Save(ctx, id, b); err != nil {
		t.Fatal(err)
	}
	p, ok, err := LoadParams(ctx, s, id)
	if !ok || err != nil || p.Name != "n" {
		t.Fatalf("valid: %+v ok=%v err=%v", p, ok, err)
	}
	if _, ok, _ := LoadParams(ctx, nil, id); ok {
		t.Fatal("nil store returned params")
	}
}

func TestDirLocator(t *testing.T) {
	root := t.TempDir()
	def, err := NewDirStore(root)
	if err != nil {
		t.Fatal(err)
	}
	l := NewDirLocator(def)

	for _, p := range []string{"", root, root + "/"} {
		s, err := l.For(p)
		if err != nil {
			t.Fatalf("For(%q): %v", p, err)
		}
		if s != Store(def) {
			t.Fatalf("For(%q) did not return the default store", p)
		}
	}
	other := filepath.Join(t.TempDir(), "elsewhere")
	s, err := l.For(other)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	ds, ok := s.(*DirStore)
	if !ok || ds.Dir() != filepath.Join(other, DirName) {
		t.Fatalf("For(%q) = %v", other, s)
	}
	again, _ := l.For(other)
	if again != s {
		t.Fatal("locator did not cache the store")
	}
}
