// Package products has response bodies of eoflowd about products.
package products

import (
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/utils/rfctime"
)

type Product struct {
	// Task and its output which have produced the product.
	TaskId string `json:"taskId"`
	Output string `json:"output"`

	Name     string `json:"name"`
	Location string `json:"location"`

	AcquisitionDate *rfctime.RFC3339 `json:"acquisitionDate,omitempty"`
}

func Compose(taskId string, output string, p domain.Product) Product {
	var date *rfctime.RFC3339
	if !p.AcquisitionDate.IsZero() {
		d := rfctime.RFC3339(p.AcquisitionDate)
		date = &d
	}
	return Product{
		TaskId: taskId, Output: output,
		Name: p.Name, Location: p.Location,
		AcquisitionDate: date,
	}
}
