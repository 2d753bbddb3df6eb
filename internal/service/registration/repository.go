package registration

import (
	"context"

	"github.com/legacycamp/camp-api/internal/domain"
)

// Repository defines the data access contract for registrations.
type Repository interface {
	// Create inserts r and fills its ID and timestamps.
	Create(ctx context.Context, r *domain.Registration) error

	// FindOne returns ErrNotFound if no registration has the id.
	FindOne(ctx context.Context, id int64) (*domain.Registration, error)

	// List returns registrations newest first, plus the total matching the
	// filter before pagination.
	List(ctx context.Context, filter ListFilter) ([]domain.Registration, int, error)

	// Update rewrites every editable column of r. Returns ErrNotFound if the
	// row does not exist.
	Update(ctx context.Context, r *domain.Registration) error

	// UpdateStatus changes only the status column.
	UpdateStatus(ctx context.Context, id int64, status domain.RegistrationStatus) error

	// Delete removes the row. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id int64) error

	// CountByStatus returns the number of registrations per status.
	CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error)

	// CountByCoupon returns how many registrations used the coupon code.
	CountByCoupon(ctx context.Context, code string) (int, error)
}

// ListFilter controls pagination and filtering for registration lists.
// Zero values mean "no constraint"; Limit 0 returns every row.
type ListFilter struct {
	Status          domain.RegistrationStatus
	RegistrationLot string
	PaymentMethod   string
	CouponCode      string
	// Search matches name, email or phone, case-insensitively.
	Search string
	Limit  int
	Offset int
}
