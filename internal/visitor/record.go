// Package visitor holds the visitor data the kiosk works with: backend records,
// the registration draft and the outcome of a face match.
package visitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Registration field names, in form order.
const (
	FieldFullName       = "full_name"
	FieldPhone          = "phone"
	FieldEmail          = "email"
	FieldNationality    = "nationality"
	FieldCompany        = "company"
	FieldIDProofType    = "id_proof_type"
	FieldIDProofNumber  = "id_proof_number"
	FieldPurpose        = "purpose"
	FieldHost           = "host"
	FieldCategory       = "category"
	FieldVehicleDetails = "vehicle_details"
	FieldAssetDetails   = "asset_details"

	// FieldVisitorID carries the matched visitor on a returning registration.
	FieldVisitorID = "visitor_id"
)

// FieldOrder lists every draft field in the order the form shows them.
var FieldOrder = []string{
	FieldFullName,
	FieldPhone,
	FieldEmail,
	FieldNationality,
	FieldCompany,
	FieldPurpose,
	FieldHost,
	FieldCategory,
	FieldIDProofType,
	FieldIDProofNumber,
	FieldVehicleDetails,
	FieldAssetDetails,
}

// identityFields are taken from the matched record and locked on a returning draft.
var identityFields = map[string]bool{
	FieldFullName:    true,
	FieldPhone:       true,
	FieldEmail:       true,
	FieldNationality: true,
	FieldCompany:     true,
}

// IsIdentityField reports whether name describes who the visitor is rather than this visit.
func IsIdentityField(name string) bool {
	return identityFields[name]
}

// Category options.
var Categories = []string{"Employee", "Guest", "Contractor"}

// ID proof options.
var IDProofTypes = []string{"Adhaar", "Pan", "DL", "Passport"}

// ID is a backend identifier. The backend sends it as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("visitor id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the id as a number when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Record is a visitor as stored by the backend.
type Record struct {
	ID             ID     `json:"id,omitempty"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Nationality    string `json:"nationality"`
	Company        string `json:"company"`
	IDProofType    string `json:"id_proof_type,omitempty"`
	IDProofNumber  string `json:"id_proof_number,omitempty"`
	Purpose        string `json:"purpose,omitempty"`
	Host           string `json:"host,omitempty"`
	Category       string `json:"category,omitempty"`
	VehicleDetails string `json:"vehicle_details,omitempty"`
	AssetDetails   string `json:"asset_details,omitempty"`
}

// Value returns the record field called name.
func (r *Record) Value(name string) string {
	switch name {
	case FieldFullName:
		return r.FullName
	case FieldPhone:
		return r.Phone
	case FieldEmail:
		return r.Email
	case FieldNationality:
		return r.Nationality
	case FieldCompany:
		return r.Company
	case FieldIDProofType:
		return r.IDProofType
	case FieldIDProofNumber:
		return r.IDProofNumber
	case FieldPurpose:
		return r.Purpose
	case FieldHost:
		return r.Host
	case FieldCategory:
		return r.Category
	case FieldVehicleDetails:
		return r.VehicleDetails
	case FieldAssetDetails:
		return r.AssetDetails
	default:
		return ""
	}
}
