package enums

import "fmt"

// VendorStatus is the per-order-item fulfillment stage. Vendors own the ladder
// up to shipped; the later stages are admin-driven.
type VendorStatus string

const (
	VendorStatusReceived       VendorStatus = "received"
	VendorStatusProcessing     VendorStatus = "processing"
	VendorStatusShipped        VendorStatus = "shipped"
	VendorStatusOutForDelivery VendorStatus = "out_for_delivery"
	VendorStatusDelivered      VendorStatus = "delivered"
)

var vendorStatusLadder = []VendorStatus{
	VendorStatusReceived,
	VendorStatusProcessing,
	VendorStatusShipped,
	VendorStatusOutForDelivery,
	VendorStatusDelivered,
}

// String implements fmt.Stringer.
func (v VendorStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorStatus.
func (v VendorStatus) IsValid() bool {
	return v.Rank() >= 0
}

// Rank returns the position of the status on the fulfillment ladder,
// or -1 for unknown values.
func (v VendorStatus) Rank() int {
	for i, candidate := range vendorStatusLadder {
		if candidate == v {
			return i
		}
	}
	return -1
}

// AtLeast reports whether the status has reached the given stage.
func (v VendorStatus) AtLeast(other VendorStatus) bool {
	return v.Rank() >= other.Rank() && other.Rank() >= 0
}

// ParseVendorStatus converts raw input into a VendorStatus.
func ParseVendorStatus(value string) (VendorStatus, error) {
	for _, candidate := range vendorStatusLadder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor status %q", value)
}
