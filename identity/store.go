package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

// Store reads and writes the canonical rider tables. It works on a *bun.DB
// or a bun.Tx.
type Store struct {
	db bun.IDB
}

// NewStore wraps db.
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

const hasLicense = "rd.license_id IS NOT NULL AND TRIM(rd.license_id) <> ''"

func (s *Store) riderSelect(dest *[]models.Rider) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dest).
		ColumnExpr("rd.*").
		ColumnExpr("COALESCE(cl.name, '') AS club_name").
		Join("LEFT JOIN clubs AS cl ON cl.id = rd.club_id")
}

// LicensedByFirstname returns license-bearing riders whose first name equals
// first, ignoring case and surrounding space. Case is folded in Go, so "Åsa"
// and "åsa" agree whatever the database collation.
func (s *Store) LicensedByFirstname(ctx context.Context, first string) ([]models.Rider, error) {
	var rows []models.Rider
	err := s.riderSelect(&rows).
		Where("rd.firstname_lower = ?", normalize.Lower(first)).
		Where(hasLicense).
		OrderExpr("rd.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select riders by first name: %w", err)
	}
	return rows, nil
}

// LicensedPopulation returns every license-bearing rider, at most limit rows
// when limit > 0.
func (s *Store) LicensedPopulation(ctx context.Context, limit int) ([]models.Rider, error) {
	var rows []models.Rider
	q := s.riderSelect(&rows).
		Where(hasLicense).
		OrderExpr("rd.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select license population: %w", err)
	}
	return rows, nil
}

// AllWithCounts returns every rider with its derived result count.
func (s *Store) AllWithCounts(ctx context.Context) ([]models.Rider, error) {
	var rows []models.Rider
	err := s.riderSelect(&rows).
		ColumnExpr("(SELECT COUNT(*) FROM results AS r WHERE r.rider_id = rd.id) AS result_count").
		OrderExpr("rd.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select riders with counts: %w", err)
	}
	return rows, nil
}

// ByIDs returns the given riders with result counts, in id order.
func (s *Store) ByIDs(ctx context.Context, ids []int64) ([]models.Rider, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Rider
	err := s.riderSelect(&rows).
		ColumnExpr("(SELECT COUNT(*) FROM results AS r WHERE r.rider_id = rd.id) AS result_count").
		Where("rd.id IN (?)", bun.In(ids)).
		OrderExpr("rd.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select riders by id: %w", err)
	}
	return rows, nil
}

// Rider loads one rider. Missing riders return sql.ErrNoRows.
func (s *Store) Rider(ctx context.Context, id int64) (*models.Rider, error) {
	rider := &models.Rider{}
	err := s.db.NewSelect().Model(rider).Where("rd.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rider, nil
}

// ByExactName returns riders with this first and last name, any license,
// oldest first.
func (s *Store) ByExactName(ctx context.Context, first, last string) ([]models.Rider, error) {
	var rows []models.Rider
	err := s.riderSelect(&rows).
		Where("rd.firstname_lower = ?", normalize.Lower(first)).
		Where("rd.lastname_lower = ?", normalize.Lower(last)).
		OrderExpr("rd.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select riders by name: %w", err)
	}
	return rows, nil
}

// Search returns riders whose first or last name contains q.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]models.Rider, error) {
	var rows []models.Rider
	pattern := "%" + normalize.Lower(q) + "%"
	err := s.riderSelect(&rows).
		ColumnExpr("(SELECT COUNT(*) FROM results AS r WHERE r.rider_id = rd.id) AS result_count").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("rd.firstname_lower LIKE ?", pattern).
				WhereOr("rd.lastname_lower LIKE ?", pattern).
				WhereOr("rd.firstname_lower || ' ' || rd.lastname_lower LIKE ?", pattern)
		}).
		OrderExpr("rd.lastname ASC, rd.firstname ASC, rd.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search riders: %w", err)
	}
	return rows, nil
}

// CreateRider inserts a new canonical rider from an incoming record.
func (s *Store) CreateRider(ctx context.Context, in IncomingRecord) (*models.Rider, error) {
	rider := &models.Rider{
		Firstname:   normalize.CollapseSpaces(in.Firstname),
		Lastname:    normalize.CollapseSpaces(in.Lastname),
		BirthYear:   in.BirthYear,
		Nationality: in.Nationality,
		ClubID:      in.ClubID,
	}
	if l := strings.TrimSpace(in.LicenseID); l != "" {
		rider.LicenseID = &l
	}
	if _, err := s.db.NewInsert().Model(rider).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert rider: %w", err)
	}
	return rider, nil
}

// ApprovedRedirect returns the newest approved redirect for nameKey whose
// canonical rider still exists, or nil.
func (s *Store) ApprovedRedirect(ctx context.Context, nameKey string) (*models.MergeRedirect, error) {
	redirect := &models.MergeRedirect{}
	err := s.db.NewSelect().
		Model(redirect).
		Where("mr.name_key = ?", nameKey).
		Where("mr.status = ?", models.RedirectApproved).
		Where("EXISTS (SELECT 1 FROM riders AS rd WHERE rd.id = mr.canonical_rider_id)").
		OrderExpr("mr.id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select merge redirect: %w", err)
	}
	return redirect, nil
}

// RedirectsTo returns approved redirects pointing at riderID.
func (s *Store) RedirectsTo(ctx context.Context, riderID int64) ([]models.MergeRedirect, error) {
	var rows []models.MergeRedirect
	err := s.db.NewSelect().
		Model(&rows).
		Where("mr.canonical_rider_id = ?", riderID).
		Where("mr.status = ?", models.RedirectApproved).
		OrderExpr("mr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select redirects to %d: %w", riderID, err)
	}
	return rows, nil
}

// AddRedirect appends an approved redirect from a retired name to riderID.
func (s *Store) AddRedirect(ctx context.Context, first, last, nameKey string, riderID int64) error {
	redirect := &models.MergeRedirect{
		MergedFirstname:  first,
		MergedLastname:   last,
		NameKey:          nameKey,
		CanonicalRiderID: riderID,
		Status:           models.RedirectApproved,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(redirect).Exec(ctx); err != nil {
		return fmt.Errorf("insert merge redirect: %w", err)
	}
	return nil
}
