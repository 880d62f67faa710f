// Package product has handlers of earth observation products.
package product

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/handler"
	"github.com/opst/eoflow/pkg/taskutil"
)

// Kind of products handled here.
const Kind = "eodata"

// AcquisitionDate fills the acquisition date from the date token in the name.
// Products without date tokens pass as they are.
type AcquisitionDate struct{}

var _ handler.Handler[domain.Product] = AcquisitionDate{}

func (AcquisitionDate) Kind() string  { return Kind }
func (AcquisitionDate) Priority() int { return 0 }

func (AcquisitionDate) Handle(_ context.Context, p domain.Product) (domain.Product, error) {
	if !p.AcquisitionDate.IsZero() {
		return p, nil
	}
	tok, ok := taskutil.DateToken(p.Name)
	if !ok {
		return p, nil
	}
	d, err := time.Parse("20060102", tok)
	if err != nil {
		return p, fmt.Errorf("product %s: %w", p.Name, err)
	}
	p.AcquisitionDate = d
	return p, nil
}

// Location turns plain paths into file:// URIs.
type Location struct{}

var _ handler.Handler[domain.Product] = Location{}

func (Location) Kind() string  { return Kind }
func (Location) Priority() int { return 10 }

func (Location) Handle(_ context.Context, p domain.Product) (domain.Product, error) {
	if p.Location == "" || strings.Contains(p.Location, "://") {
		return p, nil
	}
	abs, err := filepath.Abs(p.Location)
	if err != nil {
		return p, err
	}
	p.Location = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	return p, nil
}

// Pipelines returns pipelines of the default product handlers.
func Pipelines() *handler.Pipelines[domain.Product] {
	return handler.New[domain.Product](AcquisitionDate{}, Location{})
}
