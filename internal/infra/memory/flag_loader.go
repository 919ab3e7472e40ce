package memory

import (
	"context"
	"fmt"
	"os"

	"flagguess/internal/domain"
	"gopkg.in/yaml.v3"
)

// StaticFlagLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticFlagLoader struct {
	flags []domain.Flag
}

func NewStaticFlagLoader(flags []domain.Flag) *StaticFlagLoader {
	return &StaticFlagLoader{flags: flags}
}

func (l *StaticFlagLoader) LoadFlags(_ context.Context) ([]domain.Flag, error) {
	out := make([]domain.Flag, len(l.flags))
	copy(out, l.flags)
	return out, nil
}

type flagFile struct {
	Flags []domain.Flag `yaml:"flags"`
}

// LoadFlagsFile reads a YAML document of the form
//
//	flags:
//	  - country: France
//	    image: https://flagcdn.com/fr.svg
//
// Entries without an id are numbered from 1 in file order.
func LoadFlagsFile(path string) ([]domain.Flag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc flagFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range doc.Flags {
		if doc.Flags[i].CountryName == "" {
			return nil, fmt.Errorf("parse %s: flag %d has no country", path, i+1)
		}
		if doc.Flags[i].ID == 0 {
			doc.Flags[i].ID = int64(i + 1)
		}
	}
	return doc.Flags, nil
}

// SampleFlags is the built-in pool used when nothing else is configured.
func SampleFlags() []domain.Flag {
	return []domain.Flag{
		{ID: 1, CountryName: "France", ImageRef: "https://flagcdn.com/fr.svg"},
		{ID: 2, CountryName: "Japan", ImageRef: "https://flagcdn.com/jp.svg"},
		{ID: 3, CountryName: "Brazil", ImageRef: "https://flagcdn.com/br.svg"},
		{ID: 4, CountryName: "Canada", ImageRef: "https://flagcdn.com/ca.svg"},
		{ID: 5, CountryName: "Germany", ImageRef: "https://flagcdn.com/de.svg"},
		{ID: 6, CountryName: "India", ImageRef: "https://flagcdn.com/in.svg"},
		{ID: 7, CountryName: "Italy", ImageRef: "https://flagcdn.com/it.svg"},
		{ID: 8, CountryName: "Kenya", ImageRef: "https://flagcdn.com/ke.svg"},
		{ID: 9, CountryName: "Mexico", ImageRef: "https://flagcdn.com/mx.svg"},
		{ID: 10, CountryName: "Norway", ImageRef: "https://flagcdn.com/no.svg"},
		{ID: 11, CountryName: "South Korea", ImageRef: "https://flagcdn.com/kr.svg"},
		{ID: 12, CountryName: "Sweden", ImageRef: "https://flagcdn.com/se.svg"},
	}
}
