package model

// ManufacturerKey identifies the cloud vendor whose partner-program workflow
// applies to an onboarding record.
type ManufacturerKey string

const (
	ManufacturerMicrosoft ManufacturerKey = "MICROSOFT"
	ManufacturerAWS       ManufacturerKey = "AWS"
	ManufacturerGoogle    ManufacturerKey = "GOOGLE"
)

// DefaultManufacturer is used whenever a raw manufacturer value cannot be recognized.
const DefaultManufacturer = ManufacturerMicrosoft

// Manufacturers lists all keys in display order.
var Manufacturers = []ManufacturerKey{ManufacturerMicrosoft, ManufacturerAWS, ManufacturerGoogle}

// String returns the string representation of the key.
func (k ManufacturerKey) String() string {
	return string(k)
}

// IsValid reports whether k is one of the known keys.
func (k ManufacturerKey) IsValid() bool {
	switch k {
	case ManufacturerMicrosoft, ManufacturerAWS, ManufacturerGoogle:
		return true
	}
	return false
}

// Label returns a human-readable vendor name.
func (k ManufacturerKey) Label() string {
	switch k {
	case ManufacturerMicrosoft:
		return "Microsoft"
	case ManufacturerAWS:
		return "AWS"
	case ManufacturerGoogle:
		return "Google"
	}
	return string(k)
}
