package block

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry описывает материал в файле каталога (YAML или JSON)
type CatalogEntry struct {
	ID       MaterialID `yaml:"id"`
	Name     string     `yaml:"name"`
	Opacity  int        `yaml:"opacity"`
	Light    int        `yaml:"light"`
	Occludes []string   `yaml:"occludes"` // имена граней или "all"
}

// catalogFile допускает как один материал, так и список под ключом materials
type catalogFile struct {
	Materials []CatalogEntry `yaml:"materials"`
}

// ToMaterial проверяет запись и строит StaticMaterial
func (e CatalogEntry) ToMaterial() (*StaticMaterial, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("материал %d: пустое имя", e.ID)
	}
	if e.Opacity < 0 || e.Opacity > MaxLightLevel {
		return nil, fmt.Errorf("материал %s: opacity %d вне диапазона 0..%d", e.Name, e.Opacity, MaxLightLevel)
	}
	if e.Light < 0 || e.Light > MaxLightLevel {
		return nil, fmt.Errorf("материал %s: light %d вне диапазона 0..%d", e.Name, e.Light, MaxLightLevel)
	}

	occ := FaceSetNone
	for _, name := range e.Occludes {
		if strings.EqualFold(name, "all") {
			occ = FaceSetAll
			continue
		}
		f, ok := ParseFace(name)
		if !ok {
			return nil, fmt.Errorf("материал %s: неизвестная грань %q", e.Name, name)
		}
		occ = occ.With(f)
	}

	return &StaticMaterial{
		MaterialID: e.ID,
		MatName:    e.Name,
		Opaque:     e.Opacity,
		Light:      e.Light,
		Occludes:   occ,
	}, nil
}

// ParseCatalog проверяет содержимое одного файла каталога по схеме и разбирает его
func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	doc, err := validateCatalog(data)
	if err != nil || doc == nil {
		return nil, err
	}

	if m, ok := doc.(map[string]interface{}); ok {
		if _, isList := m["materials"]; isList {
			var file catalogFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, err
			}
			return file.Materials, nil
		}
	}

	var single CatalogEntry
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []CatalogEntry{single}, nil
}

// LoadCatalog загружает все *.yaml, *.yml и *.json из каталога и регистрирует
// описанные материалы. ID ниже CatalogBaseID зарезервированы за встроенными
// материалами. Возвращает число зарегистрированных материалов.
func LoadCatalog(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return count, fmt.Errorf("чтение %s: %w", name, err)
		}
		list, err := ParseCatalog(data)
		if err != nil {
			return count, fmt.Errorf("разбор %s: %w", name, err)
		}
		for _, entry := range list {
			if entry.ID < CatalogBaseID {
				return count, fmt.Errorf("%s: ID %d зарезервирован (минимум %d)", name, entry.ID, CatalogBaseID)
			}
			m, err := entry.ToMaterial()
			if err != nil {
				return count, fmt.Errorf("%s: %w", name, err)
			}
			Register(m)
			count++
		}
	}
	return count, nil
}
