package dfm

import "fmt"

// CheckRibBoss flags vertices thicker than factor times the nominal wall.
// A nil nominal uses the median of the defined thickness values.
func CheckRibBoss(field ThicknessField, nominal *float64, factor float64) CheckResult {
	res := CheckResult{
		Check:      KindRibBoss,
		VertexMask: make([]bool, len(field)),
		Metrics:    Metrics{Factor: ptr(factor)},
	}
	maxVal, ok := field.Max()
	if !ok {
		res.Status = StatusUnknown
		res.Message = "No finite thickness samples; rib/boss check skipped."
		return res
	}
	var base float64
	if nominal != nil {
		base = *nominal
	} else {
		base, _ = field.Median()
	}
	threshold := base * factor
	for i, t := range field {
		if t.Defined && t.Value > threshold {
			res.VertexMask[i] = true
			res.Metrics.Count++
		}
	}
	res.Metrics.Nominal = ptr(base)
	res.Metrics.Max = ptr(maxVal)
	res.Metrics.Threshold = ptr(threshold)
	res.Status = statusFor(res.Metrics.Count)
	if res.Status == StatusWarning {
		res.Message = fmt.Sprintf("%d vertices exceed %.2f× nominal wall thickness (nominal ~%.3f, max ~%.3f).",
			res.Metrics.Count, factor, base, maxVal)
	} else {
		res.Message = fmt.Sprintf("No regions above %.2f× nominal wall thickness (nominal ~%.3f, max ~%.3f).",
			factor, base, maxVal)
	}
	return res
}
