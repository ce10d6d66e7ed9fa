package ledger

// OverpaymentTolerance is the share of a due item's amount that may be
// paid on top of it before a payment is refused.
const OverpaymentTolerance = 0.5

// MaxPaid is the most that may ever be applied to a due item of amount.
func MaxPaid(amount int64) int64 {
	return amount + int64(float64(amount)*OverpaymentTolerance)
}

// DeriveDueStatus computes a due item's status from what has been paid.
func DeriveDueStatus(amount, paid int64) DueStatus {
	switch {
	case paid >= amount:
		return DuePaid
	case paid > 0:
		return DuePartial
	default:
		return DuePending
	}
}

// DeriveStanding classifies a balance against one month of rent.
func DeriveStanding(balance, monthlyRent int64) Standing {
	switch {
	case balance >= 0:
		return StandingCurrent
	case monthlyRent > 0 && balance > -monthlyRent:
		return StandingLightArrears
	default:
		return StandingHeavyArrears
	}
}

// DerivePropertyStatus computes occupancy from room states. A property put
// in maintenance stays there until an administrator changes it.
func DerivePropertyStatus(p *Property) PropertyStatus {
	if p.Status == PropertyMaintenance {
		return PropertyMaintenance
	}
	if len(p.Rooms) == 0 {
		if p.CurrentLeaseID != "" {
			return PropertyFull
		}
		return PropertyAvailable
	}
	occupied := p.OccupiedRooms()
	switch {
	case occupied == 0:
		return PropertyAvailable
	case occupied == len(p.Rooms):
		return PropertyFull
	default:
		return PropertyPartiallyRented
	}
}
