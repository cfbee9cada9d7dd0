package sqlitecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/vidscope/internal/types"
)

func TestCache_PutGet(t *testing.T) {
	t.Parallel()

	c, err := Open(filepath.Join(t.TempDir(), "nested", DefaultFile))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	tr := types.Transcript{Language: "en", Segments: []types.Segment{
		{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00", Words: []types.Word{{Start: 0, End: 0.5, Word: "hi"}}},
	}}
	if err := c.Put(ctx, "k", tr); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Language != "en" || len(got.Segments) != 1 || got.Segments[0].Speaker != "SPEAKER_00" || len(got.Segments[0].Words) != 1 {
		t.Fatalf("unexpected transcript: %+v", got)
	}

	tr.Language = "de"
	if err := c.Put(ctx, "k", tr); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _, _ = c.Get(ctx, "k")
	if got.Language != "de" {
		t.Fatalf("expected overwrite, got %q", got.Language)
	}
}

func TestKey_DependsOnEveryPart(t *testing.T) {
	t.Parallel()

	base := KeyParts{ContentHash: "abc", Engine: "whispercpp", Model: "base", Language: "en"}
	variants := []KeyParts{
		{ContentHash: "abd", Engine: "whispercpp", Model: "base", Language: "en"},
		{ContentHash: "abc", Engine: "whisperx", Model: "base", Language: "en"},
		{ContentHash: "abc", Engine: "whispercpp", Model: "small", Language: "en"},
		{ContentHash: "abc", Engine: "whispercpp", Model: "base", Language: "de"},
		{ContentHash: "abc", Engine: "whispercpp", Model: "base", Language: "en", Diarize: true},
	}
	k := Key(base)
	if k != Key(base) {
		t.Fatalf("key is not deterministic")
	}
	for _, v := range variants {
		if Key(v) == k {
			t.Fatalf("expected different key for %+v", v)
		}
	}
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(p, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(p)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("HashFile = %s, want %s", got, want)
	}
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
