package predictions

// Class is a label produced by the remote classifier.
type Class string

// Recognized classifier labels.
const (
	Malignant Class = "Malignant"
	Benign    Class = "Benign"
	Normal    Class = "Normal"
)

// ErrorClass is the display label for a failed prediction.
const ErrorClass = "Error"

var classes = map[string]Class{
	string(Malignant): Malignant,
	string(Benign):    Benign,
	string(Normal):    Normal,
}

// ParseClass returns the Class matching label exactly.
func ParseClass(label string) (Class, bool) {
	c, ok := classes[label]
	return c, ok
}

// Advisory returns the result banner text shown for the class.
func (c Class) Advisory() string {
	switch c {
	case Malignant:
		return "Warning: Signs of breast cancer detected!"
	case Benign:
		return "Benign mass found. Not cancer, but monitor if needed."
	default:
		return "Breast tissue appears normal."
	}
}
