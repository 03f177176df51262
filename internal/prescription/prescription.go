// Package prescription turns free prescription text into a structured
// prescription: header, vitals, medications and global instructions.
package prescription

// Header fields are populated only from the first lines of the text and are
// null in JSON when not found.
type Header struct {
	Patient *string `json:"patient"`
	Age     *string `json:"age"`
	Sex     *string `json:"sex"`
	Date    *string `json:"date"`
}

// Vitals captured anywhere in the text, already formatted with units.
type Vitals struct {
	BP    string `json:"bp,omitempty"`
	Pulse string `json:"pulse,omitempty"`
	SpO2  string `json:"spo2,omitempty"`
	Temp  string `json:"temp,omitempty"`
}

func (v Vitals) Empty() bool {
	return v == Vitals{}
}

type Medication struct {
	Name      string   `json:"name"`
	Form      *string  `json:"form"`
	Strength  *string  `json:"strength"`
	Frequency *string  `json:"frequency"`
	Duration  *string  `json:"duration"`
	Notes     []string `json:"notes"`
}

type Prescription struct {
	Header       Header       `json:"header"`
	Vitals       Vitals       `json:"vitals"`
	Medications  []Medication `json:"medications"`
	Instructions []string     `json:"instructions"`
}

// Names returns the medication names in prescription order.
func (p Prescription) Names() []string {
	names := make([]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		names = append(names, m.Name)
	}
	return names
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
