package model

import (
	"regexp"
	"strings"
)

// Delivery carries shipment metadata for records parsed from packing labels.
// A single animal may be portioned across multiple deliveries, so two rows
// with the same trace number but different delivery fields are distinct.
type Delivery struct {
	Destination    string `json:"destination,omitempty"`
	CutName        string `json:"cut_name,omitempty"`
	ProcessingType string `json:"processing_type,omitempty"`
	WeightKg       string `json:"weight_kg,omitempty"`
}

// TraceRecord is one ingested unit of provenance data: a traceability
// number plus display metadata, optionally carrying delivery fields.
type TraceRecord struct {
	ID          int       `json:"id"`
	TraceNumber string    `json:"trace_number"`
	BreedLabel  string    `json:"breed_label"`
	BirthDate   string    `json:"birth_date"` // YYYY-MM-DD, or "-" when unknown
	Delivery    *Delivery `json:"delivery,omitempty"`
}

// IdentityKey returns the composite deduplication key. Delivery fields
// default to empty strings, so a bare record and a label record with the
// same number still compare correctly.
func (r TraceRecord) IdentityKey() string {
	d := r.Delivery
	if d == nil {
		d = &Delivery{}
	}
	return r.TraceNumber + d.Destination + d.CutName + d.ProcessingType + d.WeightKg
}

var (
	numberSeparators = strings.NewReplacer("-", "", " ", "")
	traceNumberRe    = regexp.MustCompile(`^\d{12}$`)
)

// NormalizeTraceNumber strips hyphens and spaces from a scanned or typed
// traceability number.
func NormalizeTraceNumber(s string) string {
	return numberSeparators.Replace(strings.TrimSpace(s))
}

// IsLabelNumber reports whether the (normalized) number is a company-internal
// label id: letter-prefixed, not resolvable against the grading service.
func IsLabelNumber(s string) bool {
	n := NormalizeTraceNumber(s)
	if n == "" {
		return false
	}
	c := n[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// IsValidTraceNumber reports whether the number normalizes to the 12-digit
// government-issued form accepted by the grading lookup.
func IsValidTraceNumber(s string) bool {
	return traceNumberRe.MatchString(NormalizeTraceNumber(s))
}
