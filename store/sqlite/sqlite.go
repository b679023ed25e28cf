/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Persists the snapshots the engine consumes (members, courses,
  requirements, training records, waiver periods) and the one piece of
  state the engine owns: per-record certification alert timestamps.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  members:          Member snapshots (roles as JSON)
  courses:          Course catalog (categories as JSON)
  requirements:     Requirement definitions, stored as factory JSON
  training_records: Read-only training record snapshots
  waiver_periods:   Unified waiver/leave periods
  cert_alert_state: One nullable timestamp column per alert tier

ALERT TIER CAS:
  MarkSent is a single conditional UPSERT: the tier column is written only
  WHERE it IS NULL, and RowsAffected decides who won. Two workers running
  the daily pass concurrently cannot both fire the same tier; the loser
  sees (false, nil), which is the desired outcome, not an error.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and a single writer proceeds at a time.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - certs/tracker.go: AlertStore interface this satisfies
  - certs/store/memory.go: In-memory implementation for testing
  - factory/requirement.go: JSON form used for requirement configs
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/stationops/compliance-engine/certs"
	"github.com/stationops/compliance-engine/compliance"
	"github.com/stationops/compliance-engine/factory"
)

const dateFormat = "2006-01-02"

// Store implements snapshot persistence and certs.AlertStore using SQLite.
type Store struct {
	db *sql.DB
}

// Compile-time check that Store satisfies the alert CAS contract.
var _ certs.AlertStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		roles_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		registry_code TEXT,
		categories_json TEXT NOT NULL DEFAULT '[]',
		expiration_months INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS requirements (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_records (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		status TEXT NOT NULL,
		completion_date TEXT,
		hours_completed TEXT NOT NULL DEFAULT '0',
		course_id TEXT,
		training_type TEXT,
		certification_number TEXT,
		expiration_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_records_member
		ON training_records(member_id);
	CREATE INDEX IF NOT EXISTS idx_records_completion
		ON training_records(completion_date);

	CREATE TABLE IF NOT EXISTS waiver_periods (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		requirement_ids_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_waivers_member
		ON waiver_periods(member_id);

	-- One nullable timestamp per alert tier; each written at most once.
	CREATE TABLE IF NOT EXISTS cert_alert_state (
		record_id TEXT PRIMARY KEY,
		alert_90_sent_at TEXT,
		alert_60_sent_at TEXT,
		alert_30_sent_at TEXT,
		alert_7_sent_at TEXT,
		escalation_sent_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBERS
// =============================================================================

func (s *Store) SaveMember(ctx context.Context, m compliance.Member) error {
	roles, err := json.Marshal(m.Roles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO members (id, organization_id, roles_json) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET organization_id = excluded.organization_id, roles_json = excluded.roles_json`,
		string(m.ID), string(m.OrganizationID), string(roles))
	return err
}

func (s *Store) GetMember(ctx context.Context, id compliance.MemberID) (compliance.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, roles_json FROM members WHERE id = ?`, string(id))
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return compliance.Member{}, compliance.ErrMemberNotFound
	}
	return m, err
}

func (s *Store) ListMembers(ctx context.Context) ([]compliance.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, roles_json FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []compliance.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (compliance.Member, error) {
	var id, orgID, rolesJSON string
	if err := row.Scan(&id, &orgID, &rolesJSON); err != nil {
		return compliance.Member{}, err
	}
	var roles []string
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return compliance.Member{}, err
	}
	return compliance.Member{
		ID:             compliance.MemberID(id),
		OrganizationID: compliance.OrganizationID(orgID),
		Roles:          roles,
	}, nil
}

// =============================================================================
// COURSES
// =============================================================================

func (s *Store) SaveCourse(ctx context.Context, c compliance.Course) error {
	categories, err := json.Marshal(c.CategoryIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO courses (id, name, registry_code, categories_json, expiration_months)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			registry_code = excluded.registry_code,
			categories_json = excluded.categories_json,
			expiration_months = excluded.expiration_months`,
		string(c.ID), c.Name, c.RegistryCode, string(categories), c.ExpirationMonths)
	return err
}

// CourseCatalog loads the full catalog for evaluation.
func (s *Store) CourseCatalog(ctx context.Context) (compliance.CourseCatalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, registry_code, categories_json, expiration_months FROM courses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	catalog := make(compliance.CourseCatalog)
	for rows.Next() {
		var id, name, categoriesJSON string
		var registryCode sql.NullString
		var expirationMonths int
		if err := rows.Scan(&id, &name, &registryCode, &categoriesJSON, &expirationMonths); err != nil {
			return nil, err
		}
		var categories []string
		if err := json.Unmarshal([]byte(categoriesJSON), &categories); err != nil {
			return nil, err
		}
		catalog[compliance.CourseID(id)] = compliance.Course{
			ID:               compliance.CourseID(id),
			Name:             name,
			RegistryCode:     registryCode.String,
			CategoryIDs:      categories,
			ExpirationMonths: expirationMonths,
		}
	}
	return catalog, rows.Err()
}

// =============================================================================
// REQUIREMENTS - Stored in the factory's JSON form
// =============================================================================

func (s *Store) SaveRequirement(ctx context.Context, req *compliance.Requirement) error {
	config, err := factory.Encode(req)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requirements (id, organization_id, config_json) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			config_json = excluded.config_json`,
		string(req.ID), string(req.OrganizationID), string(config))
	return err
}

func (s *Store) GetRequirement(ctx context.Context, id compliance.RequirementID) (*compliance.Requirement, error) {
	var config string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM requirements WHERE id = ?`, string(id)).Scan(&config)
	if err == sql.ErrNoRows {
		return nil, compliance.ErrRequirementNotFound
	}
	if err != nil {
		return nil, err
	}
	return factory.Parse([]byte(config))
}

func (s *Store) ListRequirements(ctx context.Context) ([]*compliance.Requirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config_json FROM requirements ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*compliance.Requirement
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, err
		}
		req, err := factory.Parse([]byte(config))
		if err != nil {
			// Skip configs that no longer parse rather than failing the pass.
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// =============================================================================
// TRAINING RECORDS
// =============================================================================

func (s *Store) SaveRecord(ctx context.Context, rec compliance.TrainingRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_records
			(id, member_id, status, completion_date, hours_completed, course_id,
			 training_type, certification_number, expiration_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_id = excluded.member_id,
			status = excluded.status,
			completion_date = excluded.completion_date,
			hours_completed = excluded.hours_completed,
			course_id = excluded.course_id,
			training_type = excluded.training_type,
			certification_number = excluded.certification_number,
			expiration_date = excluded.expiration_date`,
		rec.ID, string(rec.MemberID), string(rec.Status),
		dateToDB(rec.CompletionDate), rec.HoursCompleted.String(),
		string(rec.CourseID), rec.TrainingType, rec.CertificationNumber,
		dateToDB(rec.ExpirationDate))
	return err
}

func (s *Store) RecordsByMember(ctx context.Context, memberID compliance.MemberID) ([]compliance.TrainingRecord, error) {
	return s.queryRecords(ctx,
		`SELECT id, member_id, status, completion_date, hours_completed, course_id,
		        training_type, certification_number, expiration_date
		 FROM training_records WHERE member_id = ? ORDER BY completion_date`,
		string(memberID))
}

func (s *Store) ListRecords(ctx context.Context) ([]compliance.TrainingRecord, error) {
	return s.queryRecords(ctx,
		`SELECT id, member_id, status, completion_date, hours_completed, course_id,
		        training_type, certification_number, expiration_date
		 FROM training_records ORDER BY member_id, completion_date`)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]compliance.TrainingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []compliance.TrainingRecord
	for rows.Next() {
		var id, memberID, status, hours string
		var completionDate, courseID, trainingType, certNumber, expirationDate sql.NullString
		if err := rows.Scan(&id, &memberID, &status, &completionDate, &hours,
			&courseID, &trainingType, &certNumber, &expirationDate); err != nil {
			return nil, err
		}

		hoursDec, err := decimal.NewFromString(hours)
		if err != nil {
			hoursDec = decimal.Zero
		}

		records = append(records, compliance.TrainingRecord{
			ID:                  id,
			MemberID:            compliance.MemberID(memberID),
			Status:              compliance.RecordStatus(status),
			CompletionDate:      dateFromDB(completionDate),
			HoursCompleted:      hoursDec,
			CourseID:            compliance.CourseID(courseID.String),
			TrainingType:        trainingType.String,
			CertificationNumber: certNumber.String,
			ExpirationDate:      dateFromDB(expirationDate),
		})
	}
	return records, rows.Err()
}

// =============================================================================
// WAIVER PERIODS
// =============================================================================

func (s *Store) SaveWaiver(ctx context.Context, id string, memberID compliance.MemberID, w compliance.WaiverPeriod) error {
	var reqIDs any
	if w.RequirementIDs != nil {
		data, err := json.Marshal(w.RequirementIDs)
		if err != nil {
			return err
		}
		reqIDs = string(data)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO waiver_periods (id, member_id, start_date, end_date, requirement_ids_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_id = excluded.member_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			requirement_ids_json = excluded.requirement_ids_json`,
		id, string(memberID), w.Start.String(), w.End.String(), reqIDs)
	return err
}

func (s *Store) WaiversByMember(ctx context.Context, memberID compliance.MemberID) ([]compliance.WaiverPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_date, end_date, requirement_ids_json
		FROM waiver_periods WHERE member_id = ? ORDER BY start_date`,
		string(memberID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waivers []compliance.WaiverPeriod
	for rows.Next() {
		var start, end string
		var reqIDsJSON sql.NullString
		if err := rows.Scan(&start, &end, &reqIDsJSON); err != nil {
			return nil, err
		}

		w := compliance.WaiverPeriod{
			Start: parseDateOrZero(start),
			End:   parseDateOrZero(end),
		}
		if reqIDsJSON.Valid {
			// NULL stays nil (blanket); present-but-empty stays targeted.
			ids := []compliance.RequirementID{}
			if err := json.Unmarshal([]byte(reqIDsJSON.String), &ids); err != nil {
				return nil, err
			}
			w.RequirementIDs = ids
		}
		waivers = append(waivers, w)
	}
	return waivers, rows.Err()
}

// =============================================================================
// ALERT STATE - certs.AlertStore implementation
// =============================================================================

var tierColumns = map[certs.Tier]string{
	certs.Tier90:      "alert_90_sent_at",
	certs.Tier60:      "alert_60_sent_at",
	certs.Tier30:      "alert_30_sent_at",
	certs.Tier7:       "alert_7_sent_at",
	certs.TierExpired: "escalation_sent_at",
}

func (s *Store) State(ctx context.Context, recordID string) (certs.AlertState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT alert_90_sent_at, alert_60_sent_at, alert_30_sent_at,
		       alert_7_sent_at, escalation_sent_at
		FROM cert_alert_state WHERE record_id = ?`, recordID)

	var t90, t60, t30, t7, esc sql.NullString
	err := row.Scan(&t90, &t60, &t30, &t7, &esc)
	if err == sql.ErrNoRows {
		return certs.AlertState{RecordID: recordID}, nil
	}
	if err != nil {
		return certs.AlertState{}, err
	}

	return certs.AlertState{
		RecordID:         recordID,
		Alert90SentAt:    timeFromDB(t90),
		Alert60SentAt:    timeFromDB(t60),
		Alert30SentAt:    timeFromDB(t30),
		Alert7SentAt:     timeFromDB(t7),
		EscalationSentAt: timeFromDB(esc),
	}, nil
}

// MarkSent advances a tier via a single conditional UPSERT. The tier column
// is only written WHERE it IS NULL; RowsAffected tells us whether this
// caller won the compare-and-set.
func (s *Store) MarkSent(ctx context.Context, recordID string, tier certs.Tier, at time.Time) (bool, error) {
	column, ok := tierColumns[tier]
	if !ok {
		return false, fmt.Errorf("unknown alert tier %q", tier)
	}

	query := fmt.Sprintf(`
		INSERT INTO cert_alert_state (record_id, %s) VALUES (?, ?)
		ON CONFLICT(record_id) DO UPDATE SET %s = excluded.%s
		WHERE cert_alert_state.%s IS NULL`,
		column, column, column, column)

	res, err := s.db.ExecContext(ctx, query, recordID, at.UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// =============================================================================
// DATE/TIME HELPERS
// =============================================================================

func dateToDB(d compliance.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func dateFromDB(s sql.NullString) compliance.Date {
	if !s.Valid || s.String == "" {
		return compliance.Date{}
	}
	return parseDateOrZero(s.String)
}

// parseDateOrZero returns the zero Date for anything that does not parse; a
// corrupt stored date reads back as "no date" rather than failing the scan.
func parseDateOrZero(s string) compliance.Date {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return compliance.Date{}
	}
	return compliance.DateOf(t)
}

func timeFromDB(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
