// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package photos loads the photo manifest that tells the report step which
// image goes into each FOTOn placeholder, and checks that the images
// exist.
package photos

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/irca-engine/internal/cities"
)

// Manifest maps a city to its photos: FOTO1..FOTO4 to image paths.
//
//	Pasto:
//	  FOTO1: fotos/pasto/p1.jpg
//	  FOTO2: fotos/pasto/p2.jpg
type Manifest map[string]map[string]string

// Load reads the manifest at path. A missing file yields an empty
// manifest. Relative image paths are resolved against the manifest's
// directory.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading photo manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing photo manifest %s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse decodes manifest YAML.
func Parse(data []byte) (Manifest, error) {
	m := Manifest{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m Manifest) resolve(dir string) {
	for _, photos := range m {
		for tag, p := range photos {
			if p != "" && !filepath.IsAbs(p) {
				photos[tag] = filepath.Join(dir, p)
			}
		}
	}
}

// Save writes the manifest as YAML.
func (m Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding photo manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing photo manifest: %w", err)
	}
	return nil
}

// For returns the photos configured for city. City names match ignoring
// case and accents, so "Popayán" finds a "Popayan" entry.
func (m Manifest) For(city string) map[string]string {
	if p, ok := m[city]; ok {
		return p
	}
	want := cities.Normalize(city)
	for name, p := range m {
		if cities.Normalize(name) == want {
			return p
		}
	}
	return nil
}

// Cities returns the manifest's cities sorted by name.
func (m Manifest) Cities() []string {
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Check is the verification result for one photo.
type Check struct {
	City  string `json:"ciudad"`
	Tag   string `json:"tag"`
	Path  string `json:"ruta"`
	Found bool   `json:"encontrada"`
	Size  int64  `json:"bytes,omitempty"`
}

// Report summarizes a verification run.
type Report struct {
	Checks        []Check  `json:"checks"`
	Found         int      `json:"fotos_encontradas"`
	Missing       int      `json:"fotos_no_encontradas"`
	ProblemCities []string `json:"ciudades_problemas"`
}

// Total returns the number of photos checked.
func (r Report) Total() int { return r.Found + r.Missing }

// SuccessRate returns the percentage of photos found, or 0 when none were
// checked.
func (r Report) SuccessRate() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Found) / float64(r.Total()) * 100
}

// AllFound reports whether every configured photo exists.
func (r Report) AllFound() bool { return r.Missing == 0 }

// ErrUnknownCity is returned by Verify for a city absent from the
// manifest.
var ErrUnknownCity = errors.New("city not in photo manifest")

// Verify checks that every photo configured for city exists, or for all
// cities when city is empty. It prints one line per photo and a summary to w.
func Verify(m Manifest, city string, w io.Writer) (Report, error) {
	var rep Report
	list := m.Cities()
	if city != "" {
		if m.For(city) == nil {
			return rep, fmt.Errorf("%w: %s", ErrUnknownCity, city)
		}
		list = []string{city}
	}

	for _, c := range list {
		photos := m.For(c)
		tags := make([]string, 0, len(photos))
		for t := range photos {
			tags = append(tags, t)
		}
		sort.Strings(tags)

		problem := false
		for _, tag := range tags {
			chk := Check{City: c, Tag: tag, Path: photos[tag]}
			if info, err := os.Stat(chk.Path); err == nil && !info.IsDir() {
				chk.Found, chk.Size = true, info.Size()
				rep.Found++
				fmt.Fprintf(w, "found:   %s %s (%s)\n", c, tag, humanize.Bytes(uint64(chk.Size)))
			} else {
				rep.Missing++
				problem = true
				fmt.Fprintf(w, "missing: %s %s (%s)\n", c, tag, chk.Path)
			}
			rep.Checks = append(rep.Checks, chk)
		}
		if problem {
			rep.ProblemCities = append(rep.ProblemCities, c)
		}
	}

	fmt.Fprintf(w, "\nPhoto summary: %d found, %d missing (total: %d, %.1f%%)\n",
		rep.Found, rep.Missing, rep.Total(), rep.SuccessRate())
	if len(rep.ProblemCities) > 0 {
		fmt.Fprintf(w, "Cities with missing photos: %s\n", strings.Join(rep.ProblemCities, ", "))
	}
	return rep, nil
}
