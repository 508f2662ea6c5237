// Package fixtures generates a small, deterministic set of mock Observation
// resources per hashed patient subject, standing in for the real Data
// Source's clinical repository (spec §1 places the real generator out of
// scope as an external collaborator; this fills the gap so the DS Resource
// Server has something to serve).
package fixtures

import (
	"crypto/sha256"
	"encoding/binary"
)

// Observation is the small subset of FHIR R4 Observation fields relevant
// to the laboratory-test bucket the DS data scope names (spec §6 scope
// string: "_security=...laboratoryTests&date=ge2024-01-01").
type Observation struct {
	ResourceType       string  `json:"resourceType"`
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	Code               string  `json:"code"`
	EffectiveDateTime  string  `json:"effectiveDateTime"`
	ValueQuantity      float64 `json:"valueQuantity"`
	ValueQuantityUnit  string  `json:"valueQuantityUnit"`
}

var labTests = []struct {
	code string
	unit string
	base float64
}{
	{"2345-7", "mg/dL", 90},   // Glucose
	{"2093-3", "mg/dL", 180},  // Cholesterol
	{"718-7", "g/dL", 14},     // Hemoglobin
	{"1751-7", "g/dL", 4},     // Albumin
}

// ForPatient deterministically generates a fixed-size Observation set for
// localSubject (the "Patient/<hash>" id), so the same patient always gets
// the same mock data across requests.
func ForPatient(localSubject string) []Observation {
	seed := sha256.Sum256([]byte(localSubject))

	out := make([]Observation, 0, len(labTests))
	for i, test := range labTests {
		offset := float64(binary.BigEndian.Uint16(seed[i*2:i*2+2])%200) / 10.0
		out = append(out, Observation{
			ResourceType:      "Observation",
			ID:                observationID(localSubject, i),
			Status:            "final",
			Code:              test.code,
			EffectiveDateTime: "2024-06-01",
			ValueQuantity:     test.base + offset,
			ValueQuantityUnit: test.unit,
		})
	}
	return out
}

func observationID(localSubject string, index int) string {
	sum := sha256.Sum256([]byte(localSubject))
	const hextable = "0123456789abcdef"
	buf := make([]byte, 12)
	for i := range buf {
		buf[i] = hextable[sum[i]&0xf]
	}
	return string(buf) + "-" + string(rune('0'+index))
}
