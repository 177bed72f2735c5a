package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/storegrid/internal/fault"
)

// storeFile mirrors the bootstrap catalog description format.
type storeFile struct {
	StoreName    string        `json:"StoreName" yaml:"StoreName"`
	Latitude     float64       `json:"Latitude" yaml:"Latitude"`
	Longitude    float64       `json:"Longitude" yaml:"Longitude"`
	FoodCategory string        `json:"FoodCategory" yaml:"FoodCategory"`
	Stars        int           `json:"Stars" yaml:"Stars"`
	NoOfVotes    int           `json:"NoOfVotes" yaml:"NoOfVotes"`
	StoreLogo    string        `json:"StoreLogo" yaml:"StoreLogo"`
	Products     []productFile `json:"Products" yaml:"Products"`
}

type productFile struct {
	ProductName     string  `json:"ProductName" yaml:"ProductName"`
	ProductType     string  `json:"ProductType" yaml:"ProductType"`
	ProductImage    string  `json:"ProductImage" yaml:"ProductImage"`
	AvailableAmount int     `json:"Available Amount" yaml:"Available Amount"`
	Price           float64 `json:"Price" yaml:"Price"`
}

// LoadStoreFile reads a bootstrap catalog description into a Store.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func LoadStoreFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading store file %s: %v", fault.ErrNotFound, path, err)
	}
	return ParseStoreFile(filepath.Ext(path), data)
}

// ParseStoreFile decodes a catalog description. ext selects the format.
func ParseStoreFile(ext string, data []byte) (*Store, error) {
	var f storeFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: decoding yaml store file: %v", fault.ErrProtocol, err)
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: decoding json store file: %v", fault.ErrProtocol, err)
		}
	}

	s := &Store{
		Name:         f.StoreName,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		FoodCategory: f.FoodCategory,
		Stars:        f.Stars,
		Votes:        f.NoOfVotes,
		Logo:         f.StoreLogo,
		Products:     make([]Product, 0, len(f.Products)),
	}
	for _, p := range f.Products {
		s.Products = append(s.Products, NewProduct(p.ProductName, p.ProductType, p.ProductImage, p.AvailableAmount, p.Price))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.RecomputePriceCategory()
	return s, nil
}
