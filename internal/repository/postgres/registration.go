package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/service/registration"
)

// RegistrationRepo implements registration.Repository against PostgreSQL.
type RegistrationRepo struct{ db *sql.DB }

// NewRegistrationRepo creates a Postgres-backed registration repository.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// registrationColumns lists the editable columns in insert/update order.
var registrationColumns = []string{
	"full_name", "birth_date", "age", "gender", "phone", "email", "address", "social_media",
	"emergency_contact_name", "emergency_contact_phone", "emergency_contact_relationship",
	"is_lagoinha_member", "church_name", "ministry_participation",
	"registration_lot", "payment_method", "payment_proof", "coupon_code",
	"shirt_size", "has_allergy", "allergy_details", "uses_medication", "medication_details",
	"dietary_restriction", "has_ministry_test", "ministry_test_results", "prayer_request",
	"image_authorization", "analysis_awareness", "terms_awareness", "truth_declaration",
	"status",
}

var selectRegistration = "SELECT id, " + strings.Join(registrationColumns, ", ") +
	", created_at, updated_at FROM inscricoes"

func registrationArgs(r *domain.Registration) []interface{} {
	return []interface{}{
		r.FullName, r.BirthDate, r.Age, r.Gender, r.Phone, r.Email, r.Address, r.SocialMedia,
		r.EmergencyContactName, r.EmergencyContactPhone, r.EmergencyContactRelationship,
		r.IsLagoinhaMember, r.ChurchName, r.MinistryParticipation,
		r.RegistrationLot, r.PaymentMethod, nullString(r.PaymentProof), nullString(r.CouponCode),
		r.ShirtSize, r.HasAllergy, nullString(r.AllergyDetails), nullString(r.UsesMedication), nullString(r.MedicationDetails),
		r.DietaryRestriction, r.HasMinistryTest, nullString(r.MinistryTestResults), r.PrayerRequest,
		r.ImageAuthorization, r.AnalysisAwareness, r.TermsAwareness, r.TruthDeclaration,
		string(r.Status),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRegistration(s rowScanner) (*domain.Registration, error) {
	var (
		r                                                    domain.Registration
		birth                                                time.Time
		proof, coupon, allergy, usesMed, medDetails, results sql.NullString
		status                                               string
	)
	err := s.Scan(
		&r.ID,
		&r.FullName, &birth, &r.Age, &r.Gender, &r.Phone, &r.Email, &r.Address, &r.SocialMedia,
		&r.EmergencyContactName, &r.EmergencyContactPhone, &r.EmergencyContactRelationship,
		&r.IsLagoinhaMember, &r.ChurchName, &r.MinistryParticipation,
		&r.RegistrationLot, &r.PaymentMethod, &proof, &coupon,
		&r.ShirtSize, &r.HasAllergy, &allergy, &usesMed, &medDetails,
		&r.DietaryRestriction, &r.HasMinistryTest, &results, &r.PrayerRequest,
		&r.ImageAuthorization, &r.AnalysisAwareness, &r.TermsAwareness, &r.TruthDeclaration,
		&status,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.BirthDate = birth.Format("2006-01-02")
	r.PaymentProof = stringPtr(proof)
	r.CouponCode = stringPtr(coupon)
	r.AllergyDetails = stringPtr(allergy)
	r.UsesMedication = stringPtr(usesMed)
	r.MedicationDetails = stringPtr(medDetails)
	r.MinistryTestResults = stringPtr(results)
	r.Status = domain.RegistrationStatus(status)
	return &r, nil
}

func (r *RegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	placeholders := make([]string, len(registrationColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf(`INSERT INTO inscricoes (%s, created_at, updated_at)
		VALUES (%s, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		strings.Join(registrationColumns, ", "), strings.Join(placeholders, ", "))

	err := r.db.QueryRowContext(ctx, q, registrationArgs(reg)...).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepo) FindOne(ctx context.Context, id int64) (*domain.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, selectRegistration+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &registration.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepo) List(ctx context.Context, f registration.ListFilter) ([]domain.Registration, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1
	add := func(cond string, val interface{}) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.RegistrationLot != "" {
		add("registration_lot = $%d", f.RegistrationLot)
	}
	if f.PaymentMethod != "" {
		add("payment_method = $%d", f.PaymentMethod)
	}
	if f.CouponCode != "" {
		add("coupon_code = $%d", f.CouponCode)
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inscricoes"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	q := selectRegistration + clause + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := []domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	return out, total, nil
}

func (r *RegistrationRepo) Update(ctx context.Context, reg *domain.Registration) error {
	sets := make([]string, len(registrationColumns))
	for i, col := range registrationColumns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	idx := len(registrationColumns) + 1
	q := fmt.Sprintf("UPDATE inscricoes SET %s, updated_at = NOW() WHERE id = $%d RETURNING updated_at",
		strings.Join(sets, ", "), idx)

	args := append(registrationArgs(reg), reg.ID)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&reg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &registration.NotFoundError{ID: reg.ID}
	}
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id int64, status domain.RegistrationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inscricoes SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &registration.NotFoundError{ID: id}
	}
	return nil
}

func (r *RegistrationRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inscricoes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &registration.NotFoundError{ID: id}
	}
	return nil
}

func (r *RegistrationRepo) CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM inscricoes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.RegistrationStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[domain.RegistrationStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *RegistrationRepo) CountByCoupon(ctx context.Context, code string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inscricoes WHERE coupon_code = $1`, code,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by coupon: %w", err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
