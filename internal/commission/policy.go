package commission

import (
	"errors"
	"fmt"

	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
)

// TotalPercent is the whole every split must add up to.
const TotalPercent = 100

var (
	ErrInvalidRange    = errors.New("commission percent out of range")
	ErrOverAllocation  = errors.New("commission percents exceed 100")
	ErrTotalMismatch   = errors.New("commission split does not total 100")
	errFractionalInput = errors.New("commission percent must be a whole number")
)

// Split is the four-way allocation of a sale. VendorPercent is always the
// remainder of the other three.
type Split struct {
	RetailerPercent int `json:"retailerPercent"`
	SourcerPercent  int `json:"sourcerPercent"`
	TapifyPercent   int `json:"tapifyPercent"`
	VendorPercent   int `json:"vendorPercent"`
}

// Total sums all four shares.
func (s Split) Total() int {
	return s.RetailerPercent + s.SourcerPercent + s.TapifyPercent + s.VendorPercent
}

// Breakdown is the display form of a split, one "NN%" string per party.
type Breakdown struct {
	Retailer string `json:"retailer"`
	Sourcer  string `json:"sourcer"`
	Tapify   string `json:"tapify"`
	Vendor   string `json:"vendor"`
}

func (s Split) Breakdown() Breakdown {
	return Breakdown{
		Retailer: formatPercent(s.RetailerPercent),
		Sourcer:  formatPercent(s.SourcerPercent),
		Tapify:   formatPercent(s.TapifyPercent),
		Vendor:   formatPercent(s.VendorPercent),
	}
}

// DeriveSplit computes the vendor share from the three configured shares.
// Each input must lie in [0,100] and together they may not exceed 100.
func DeriveSplit(retailerPercent, sourcerPercent, tapifyPercent int) (Split, error) {
	inputs := []struct {
		field string
		value int
	}{
		{field: "retailerPercent", value: retailerPercent},
		{field: "sourcerPercent", value: sourcerPercent},
		{field: "tapifyPercent", value: tapifyPercent},
	}
	for _, in := range inputs {
		if in.value < 0 || in.value > TotalPercent {
			return Split{}, pkgerrors.Wrap(
				pkgerrors.CodeValidation,
				ErrInvalidRange,
				fmt.Sprintf("%s must be between 0 and 100, got %d", in.field, in.value),
			).WithDetails(map[string]any{
				"field": in.field,
				"value": in.value,
				"min":   0,
				"max":   TotalPercent,
			})
		}
	}

	allocated := retailerPercent + sourcerPercent + tapifyPercent
	if allocated > TotalPercent {
		return Split{}, pkgerrors.Wrap(
			pkgerrors.CodeValidation,
			ErrOverAllocation,
			fmt.Sprintf("Total must equal 100%%, current: %d%%", allocated),
		).WithDetails(map[string]any{
			"total": allocated,
			"breakdown": map[string]string{
				"retailer": formatPercent(retailerPercent),
				"sourcer":  formatPercent(sourcerPercent),
				"tapify":   formatPercent(tapifyPercent),
			},
		})
	}

	return Split{
		RetailerPercent: retailerPercent,
		SourcerPercent:  sourcerPercent,
		TapifyPercent:   tapifyPercent,
		VendorPercent:   TotalPercent - allocated,
	}, nil
}

// ValidateTotal checks a complete split sums to exactly 100 with every share
// in range.
func ValidateTotal(split Split) error {
	shares := []int{split.RetailerPercent, split.SourcerPercent, split.TapifyPercent, split.VendorPercent}
	for _, share := range shares {
		if share < 0 || share > TotalPercent {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidRange, "commission shares must be between 0 and 100").
				WithDetails(map[string]any{"breakdown": split.Breakdown()})
		}
	}
	if total := split.Total(); total != TotalPercent {
		return pkgerrors.Wrap(
			pkgerrors.CodeValidation,
			ErrTotalMismatch,
			fmt.Sprintf("Total must equal 100%%, current: %d%%", total),
		).WithDetails(map[string]any{
			"total":     total,
			"breakdown": split.Breakdown(),
		})
	}
	return nil
}

func formatPercent(value int) string {
	return fmt.Sprintf("%d%%", value)
}
