package fee

// Breakdown is the result of a fee computation. Values are unrounded; callers
// round once at the point of persisting minor units so repeated previews do
// not compound rounding error.
type Breakdown struct {
	BaseAmount float64 `json:"base_amount"`
	Fee        float64 `json:"fee"`
	Total      float64 `json:"total"`
}

const (
	proportionalRate = 0.019
	flatFeeMinor     = 20.0
	flatFeeMajor     = 0.2
)

// Compute returns the gateway transaction fee and total payable for a
// requested amount. When minorUnits is true the input is already in minor
// units (e.g. pence); otherwise the input is converted to major units before
// the fee schedule applies. Callers must pick one mode per payment request and
// stick to it: the two modes are not numerically interchangeable.
func Compute(amount int64, minorUnits bool) Breakdown {
	if amount == 0 {
		return Breakdown{}
	}

	if minorUnits {
		base := float64(amount)
		var charge float64
		if amount > 0 {
			charge = base*proportionalRate + flatFeeMinor
		}
		return Breakdown{
			BaseAmount: base,
			Fee:        charge,
			Total:      base + charge,
		}
	}

	base := float64(amount) / 100
	var charge float64
	if base > 0 {
		charge = base*proportionalRate + flatFeeMajor
	}
	return Breakdown{
		BaseAmount: base,
		Fee:        charge,
		Total:      base + charge,
	}
}
