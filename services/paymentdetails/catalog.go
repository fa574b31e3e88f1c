package paymentdetails

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed methods.yaml
var defaultMethods []byte

// Catalog is the closed, read-only set of manual payment methods
type Catalog struct {
	methods []PaymentMethod
	byCode  map[string]PaymentMethod
}

// LoadCatalog reads the catalog from filename, or the built-in one when filename is empty
func LoadCatalog(filename string) (*Catalog, error) {
	data := defaultMethods
	if filename != "" {
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading payment methods %s: %s", filename, err)
		}
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	file := catalogFile{}
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("error parsing payment methods: %s", err)
	}
	if len(file.Methods) == 0 {
		return nil, fmt.Errorf("payment methods catalog is empty")
	}

	catalog := &Catalog{
		methods: make([]PaymentMethod, 0, len(file.Methods)),
		byCode:  map[string]PaymentMethod{},
	}
	for _, m := range file.Methods {
		m.Code = strings.TrimSpace(m.Code)
		if m.Code == "" || m.Label == "" {
			return nil, fmt.Errorf("payment method %+v lacks code or label", m)
		}
		if _, exists := catalog.byCode[m.Code]; exists {
			return nil, fmt.Errorf("duplicate payment method %s", m.Code)
		}
		catalog.byCode[m.Code] = m
		catalog.methods = append(catalog.methods, m)
	}

	return catalog, nil
}

func (c *Catalog) Exists(code string) bool {
	_, found := c.byCode[code]
	return found
}

func (c *Catalog) List() []PaymentMethod {
	return append([]PaymentMethod{}, c.methods...)
}

// Details returns nil for unknown methods and for methods that need no transfer details
func (c *Catalog) Details(code string) *PaymentDetails {
	m, found := c.byCode[code]
	if !found || m.AccountNumber == "" {
		return nil
	}
	return &PaymentDetails{
		Title:        m.Label,
		Value:        m.AccountNumber,
		Instructions: m.Instructions,
	}
}
