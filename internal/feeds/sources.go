package feeds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CategorySource is one configured digest category. The order of categories
// in the sources file defines the category order of the final digest. Deals
// marks shopping-deal categories: the model is asked for price fields and the
// renderer uses the compact deal layout.
type CategorySource struct {
	Name  string   `yaml:"name"`
	Emoji string   `yaml:"emoji"`
	Deals bool     `yaml:"deals"`
	Feeds []string `yaml:"feeds"`
}

type sourcesFile struct {
	Categories []CategorySource `yaml:"categories"`
}

// LoadSources reads the category/feed configuration from a YAML file.
func LoadSources(path string) ([]CategorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("sources file %s defines no categories", path)
	}

	seen := make(map[string]bool, len(file.Categories))
	for i, category := range file.Categories {
		if category.Name == "" {
			return nil, fmt.Errorf("sources file %s: category %d has no name", path, i+1)
		}
		if seen[category.Name] {
			return nil, fmt.Errorf("sources file %s: duplicate category %q", path, category.Name)
		}
		seen[category.Name] = true
		if len(category.Feeds) == 0 {
			return nil, fmt.Errorf("sources file %s: category %q has no feeds", path, category.Name)
		}
	}
	return file.Categories, nil
}
