package models

// Work type values accepted from the form. The letter aliases are the
// short codes used by older form revisions.
const (
	WorkTypeInterior   = "interior"
	WorkTypeExterior   = "exterior"
	WorkTypePlumbing   = "plumbing"
	WorkTypeElectrical = "electrical"
)

var workTypeLabels = map[string]string{
	WorkTypeInterior:   "KT",
	WorkTypeExterior:   "SKT",
	WorkTypePlumbing:   "LGU+",
	WorkTypeElectrical: "기타(지역방송)",
	"A":                "KT",
	"B":                "SKT",
	"C":                "LGU+",
	"D":                "기타(지역방송)",
}

// WorkTypeLabel maps a work type to the carrier label shown to admins.
// Unknown values pass through unchanged.
func WorkTypeLabel(workType string) string {
	if label, ok := workTypeLabels[workType]; ok {
		return label
	}
	return workType
}
