package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/equityline/caseenrich/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`

	// Schema, when set, becomes the connection search_path.
	Schema string `yaml:"schema" mapstructure:"schema"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.Schema != "" {
			pgxCfg.ConnConfig.RuntimeParams["search_path"] = poolCfg.Schema
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS case_intake (
	case_number           TEXT PRIMARY KEY,
	case_category         TEXT,
	county_code           TEXT,
	extracted_case_status TEXT,
	filing_date           DATE,
	court_type            TEXT,
	complexity_score      INTEGER,
	manual_flag           BOOLEAN,
	classification_reason TEXT,
	extracted_case_type   TEXT,
	parse_failed          BOOLEAN,
	parse_failed_reason   TEXT,
	active_indicator      BOOLEAN,
	red_flag              TEXT,
	red_flag_reason       TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_case_intake_parse_failed ON case_intake(parse_failed);
CREATE INDEX IF NOT EXISTS idx_case_intake_red_flag ON case_intake(red_flag);

CREATE TABLE IF NOT EXISTS property_info (
	id                      TEXT PRIMARY KEY,
	case_number             TEXT NOT NULL REFERENCES case_intake(case_number),
	property_address        TEXT,
	parcel_or_tax_id        TEXT,
	owner_name              TEXT,
	first_name              TEXT,
	last_name               TEXT,
	owner_mailing_address   TEXT,
	mailing_address         TEXT,
	mailing_city            TEXT,
	mailing_state           TEXT,
	zip_code                TEXT,
	owner_deceased          BOOLEAN,
	owner_deceased_reason   TEXT,
	owner_other_case_number TEXT,
	deed_book_number        TEXT,
	deed_page_number        TEXT,
	mortgage_balance        BIGINT,
	number_of_heirs         TEXT,
	property_use_type       TEXT,
	manual_review           BOOLEAN NOT NULL DEFAULT false,
	manual_review_reason    TEXT,
	assessed_value          BIGINT,
	equity                  BIGINT,
	equity_status           TEXT,
	gis_parcel_number       TEXT,
	gis_owner_name          TEXT,
	gis_owner_first_name    TEXT,
	gis_owner_last_name     TEXT,
	gis_owner_mailing_address TEXT,
	gis_updated             BOOLEAN,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated_at         TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_property_info_case_number ON property_info(case_number);

CREATE TABLE IF NOT EXISTS tax_info (
	id                     TEXT PRIMARY KEY,
	case_number            TEXT NOT NULL REFERENCES case_intake(case_number),
	amount_owed            BIGINT NOT NULL DEFAULT 0,
	parcel_or_tax_id       TEXT,
	total_tax_value        BIGINT,
	tax_due_or_lien_amount BIGINT,
	mortgage_balance       BIGINT,
	assessed_value         BIGINT,
	equity                 BIGINT,
	equity_status          TEXT,
	manual_review          BOOLEAN NOT NULL DEFAULT false,
	manual_review_reason   TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tax_info_case_number ON tax_info(case_number);
CREATE INDEX IF NOT EXISTS idx_tax_info_equity_status ON tax_info(equity_status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// PendingCases lists intake rows awaiting enrichment: never enriched,
// never red-flagged, and not already marked as a parse failure. Category
// and county come from the case number itself.
func (s *PostgresStore) PendingCases(ctx context.Context, limit int) ([]model.CaseRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT case_number, created_at FROM case_intake
		 WHERE extracted_case_status IS NULL
		   AND red_flag IS NULL
		   AND parse_failed IS NOT TRUE
		 ORDER BY created_at, case_number
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: pending cases")
	}
	defer rows.Close()

	var cases []model.CaseRecord
	for rows.Next() {
		var rec model.CaseRecord
		if err := rows.Scan(&rec.CaseNumber, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pending case")
		}
		rec.Category = model.ParseCategory(rec.CaseNumber)
		rec.County = model.CountyCode(rec.CaseNumber)
		cases = append(cases, rec)
	}
	return cases, eris.Wrap(rows.Err(), "postgres: pending cases iterate")
}

// MarkParseFailed records a case-level failure without touching any other
// enrichment columns.
func (s *PostgresStore) MarkParseFailed(ctx context.Context, caseNumber, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE case_intake
		 SET parse_failed = TRUE, parse_failed_reason = $2, last_updated_at = now()
		 WHERE case_number = $1`,
		caseNumber, reason,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark parse failed %s", caseNumber)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", caseNumber)
	}
	return nil
}

// UpdateRedFlag records a red-flagged case. Only the red-flag fields and
// the case summary are written; no property or tax rows exist for these.
func (s *PostgresStore) UpdateRedFlag(ctx context.Context, caseNumber, reason, caseSummary string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE case_intake
		 SET red_flag = 'Yes', red_flag_reason = $2, classification_reason = $3,
		     active_indicator = $4, parse_failed = FALSE, parse_failed_reason = NULL,
		     last_updated_at = now()
		 WHERE case_number = $1`,
		caseNumber, reason, caseSummary, active,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update red flag %s", caseNumber)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", caseNumber)
	}
	return nil
}

// SaveFinal writes a completed case in one transaction: the intake update,
// then a delete-and-insert of its property and tax rows so a rerun leaves
// no stale children behind.
func (s *PostgresStore) SaveFinal(ctx context.Context, result *model.FinalResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := result.Case
	tag, err := tx.Exec(ctx,
		`UPDATE case_intake
		 SET extracted_case_status = $2, filing_date = $3, court_type = $4,
		     complexity_score = $5, manual_flag = $6, classification_reason = $7,
		     extracted_case_type = $8, parse_failed = FALSE, parse_failed_reason = NULL,
		     active_indicator = $9, red_flag = $10, red_flag_reason = $11,
		     last_updated_at = now()
		 WHERE case_number = $1`,
		c.CaseNumber, c.ExtractedCaseStatus, c.FilingDate, c.CourtType,
		c.ComplexityScore, c.ManualFlag, c.ClassificationReason,
		c.ExtractedCaseType, c.ActiveIndicator, c.RedFlag, c.RedFlagReason,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update case %s", c.CaseNumber)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", c.CaseNumber)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM property_info WHERE case_number = $1`, c.CaseNumber); err != nil {
		return eris.Wrapf(err, "postgres: clear property rows %s", c.CaseNumber)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM tax_info WHERE case_number = $1`, c.CaseNumber); err != nil {
		return eris.Wrapf(err, "postgres: clear tax rows %s", c.CaseNumber)
	}

	for _, p := range result.Properties {
		if _, err := tx.Exec(ctx,
			`INSERT INTO property_info
			 (id, case_number, property_address, parcel_or_tax_id, owner_name,
			  first_name, last_name, owner_mailing_address, mailing_address,
			  mailing_city, mailing_state, zip_code, owner_deceased,
			  owner_deceased_reason, owner_other_case_number, deed_book_number,
			  deed_page_number, mortgage_balance, number_of_heirs,
			  property_use_type, manual_review, manual_review_reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			         $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
			p.ID, p.CaseNumber, p.PropertyAddress, p.ParcelOrTaxID, p.OwnerName,
			p.FirstName, p.LastName, p.OwnerMailingAddress, p.MailingAddress,
			p.MailingCity, p.MailingState, p.ZipCode, p.OwnerDeceased,
			p.OwnerDeceasedReason, p.OwnerOtherCaseNumber, p.DeedBookNumber,
			p.DeedPageNumber, p.MortgageBalance, p.NumberOfHeirs,
			p.PropertyUseType, p.ManualReview, p.ManualReviewReason,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert property row %s", c.CaseNumber)
		}
	}

	tr := result.Tax
	if _, err := tx.Exec(ctx,
		`INSERT INTO tax_info
		 (id, case_number, amount_owed, parcel_or_tax_id, total_tax_value,
		  tax_due_or_lien_amount, mortgage_balance, manual_review,
		  manual_review_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tr.ID, tr.CaseNumber, tr.AmountOwed, tr.ParcelOrTaxID, tr.TotalTaxValue,
		tr.TaxDueOrLienAmount, tr.MortgageBalance, tr.ManualReview,
		tr.ManualReviewReason,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert tax row %s", c.CaseNumber)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit case %s", c.CaseNumber)
	}
	return nil
}

// EquityCandidates lists cases eligible for the supplemental parcel match:
// clean enriched cases not yet carrying an equity figure. One property row
// per case is enough for matching.
func (s *PostgresStore) EquityCandidates(ctx context.Context) ([]model.EquityCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (t.case_number)
		        t.case_number, t.amount_owed, t.parcel_or_tax_id,
		        p.property_address, p.owner_mailing_address,
		        p.deed_book_number, p.deed_page_number
		 FROM tax_info t
		 JOIN property_info p ON p.case_number = t.case_number
		 WHERE p.manual_review = FALSE AND t.manual_review = FALSE
		   AND p.equity IS NULL AND t.equity IS NULL
		 ORDER BY t.case_number`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: equity candidates")
	}
	defer rows.Close()

	var candidates []model.EquityCandidate
	for rows.Next() {
		var c model.EquityCandidate
		if err := rows.Scan(&c.CaseNumber, &c.AmountOwed, &c.ParcelID,
			&c.PropertyAddress, &c.MailingAddress, &c.DeedBook, &c.DeedPage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan equity candidate")
		}
		candidates = append(candidates, c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: equity candidates iterate")
}

// ApplyEquity writes the matched parcel's assessed value, the derived
// equity tier, and the dataset's own owner fields to both the property and
// tax rows in one transaction.
func (s *PostgresStore) ApplyEquity(ctx context.Context, caseNumber string, match model.ParcelMatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE property_info
		 SET assessed_value = $2, equity = $3, equity_status = $4,
		     gis_parcel_number = $5, gis_owner_name = $6,
		     gis_owner_first_name = $7, gis_owner_last_name = $8,
		     gis_owner_mailing_address = $9, gis_updated = TRUE,
		     last_updated_at = now()
		 WHERE case_number = $1`,
		caseNumber, match.AssessedValue, match.Equity, string(match.Status),
		match.ParcelNumber, match.OwnerName, match.OwnerFirstName,
		match.OwnerLastName, match.MailingAddress,
	); err != nil {
		return eris.Wrapf(err, "postgres: apply equity to property rows %s", caseNumber)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tax_info
		 SET assessed_value = $2, equity = $3, equity_status = $4,
		     manual_review = FALSE, last_updated_at = now()
		 WHERE case_number = $1`,
		caseNumber, match.AssessedValue, match.Equity, string(match.Status),
	); err != nil {
		return eris.Wrapf(err, "postgres: apply equity to tax row %s", caseNumber)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit equity %s", caseNumber)
	}
	return nil
}

// MarkEquityUnmatched routes a case with no parcel match to manual review.
func (s *PostgresStore) MarkEquityUnmatched(ctx context.Context, caseNumber string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE property_info
		 SET gis_updated = FALSE, manual_review = TRUE,
		     manual_review_reason = 'PROPERTY ADDRESS, PARCEL ID, AND DEED BOOK/PAGE NOT MATCHED',
		     last_updated_at = now()
		 WHERE case_number = $1`,
		caseNumber,
	)
	return eris.Wrapf(err, "postgres: mark equity unmatched %s", caseNumber)
}
