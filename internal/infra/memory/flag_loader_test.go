package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flagguess/internal/domain"
)

func TestLoadFlagsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.yaml")
	doc := "flags:\n  - country: France\n    image: fr.svg\n  - id: 40\n    country: Japan\n    image: jp.svg\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	flags, err := LoadFlagsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[0].ID != 1 || flags[0].CountryName != "France" || flags[0].ImageRef != "fr.svg" {
		t.Fatalf("unexpected first flag %+v", flags[0])
	}
	if flags[1].ID != 40 {
		t.Fatalf("explicit id not kept: %+v", flags[1])
	}
}

func TestLoadFlagsFileRejectsMissingCountry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.yaml")
	_ = os.WriteFile(path, []byte("flags:\n  - image: x.svg\n"), 0o600)
	if _, err := LoadFlagsFile(path); err == nil {
		t.Fatalf("expected error for flag without country")
	}
}

func TestStaticFlagLoaderReturnsCopy(t *testing.T) {
	loader := NewStaticFlagLoader(SampleFlags())
	flags, _ := loader.LoadFlags(context.Background())
	flags[0].CountryName = "Atlantis"

	again, _ := loader.LoadFlags(context.Background())
	if again[0].CountryName != "France" {
		t.Fatalf("loader state leaked: %+v", again[0])
	}
}

func TestBundledFlagsUseAbsoluteImages(t *testing.T) {
	bundled, err := LoadFlagsFile(filepath.Join("..", "..", "..", "config", "flags.yaml"))
	if err != nil {
		t.Fatalf("load bundled flags: %v", err)
	}
	for name, flags := range map[string][]domain.Flag{"sample": SampleFlags(), "config/flags.yaml": bundled} {
		if len(flags) == 0 {
			t.Fatalf("%s: no flags", name)
		}
		for _, f := range flags {
			if !strings.HasPrefix(f.ImageRef, "https://") {
				t.Fatalf("%s: %s image %q is not an absolute URL", name, f.CountryName, f.ImageRef)
			}
		}
	}
}
