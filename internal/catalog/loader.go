package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk catalog schema: three sections, one per
// category.
type catalogFile struct {
	Tools     []Resource `yaml:"tools"`
	Datasets  []Resource `yaml:"datasets"`
	Knowledge []Resource `yaml:"knowledge"`
}

// LoadFile reads a catalog from a single YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

// LoadDir reads the catalog from the data directory's catalog.yaml.
func LoadDir(dataDir string) (*Catalog, error) {
	return LoadFile(filepath.Join(dataDir, "catalog.yaml"))
}

// parse decodes the YAML sections and tags each entry with its category.
func parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var resources []Resource
	for _, r := range file.Tools {
		r.Category = CategoryTool
		resources = append(resources, r)
	}
	for _, r := range file.Datasets {
		r.Category = CategoryDataset
		resources = append(resources, r)
	}
	for _, r := range file.Knowledge {
		r.Category = CategoryKnowledge
		resources = append(resources, r)
	}

	if len(resources) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	return New(resources)
}
