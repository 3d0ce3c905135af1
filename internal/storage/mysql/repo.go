package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"property_manager/internal/domain"
)

const errDuplicateEntry = 1062

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func f64Ptr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

type scanner interface{ Scan(dest ...any) error }

// Repo is the MySQL-backed domain.Repository.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

var _ domain.Repository = (*Repo)(nil)

// withTx runs fn in a transaction, committing only when fn succeeds.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ---------- properties ----------

func propertyArgs(p domain.Property) []any {
	status := p.Status
	if status == "" {
		status = domain.PropertyActive
	}
	return []any{
		p.Name, p.Address, p.City, valStr(p.PostalCode), p.Country,
		valF64(p.Lat), valF64(p.Lon), valInt(p.Bedrooms),
		valF64(p.DefaultRate), valF64(p.MonthlyRent),
		string(status), valStr(p.ExternalID),
	}
}

func scanProperty(s scanner) (domain.Property, error) {
	var (
		p                  domain.Property
		postal, ext        sql.NullString
		lat, lon           sql.NullFloat64
		rate, rent         sql.NullFloat64
		bedrooms           sql.NullInt64
		status             string
		createdAt, updated time.Time
	)
	if err := s.Scan(
		&p.ID, &p.Name, &p.Address, &p.City, &postal, &p.Country,
		&lat, &lon, &bedrooms, &rate, &rent, &status, &ext,
		&createdAt, &updated,
	); err != nil {
		return domain.Property{}, err
	}
	p.PostalCode = strPtr(postal)
	p.Lat, p.Lon = f64Ptr(lat), f64Ptr(lon)
	p.Bedrooms = intPtr(bedrooms)
	p.DefaultRate, p.MonthlyRent = f64Ptr(rate), f64Ptr(rent)
	p.Status = domain.PropertyStatus(status)
	p.ExternalID = strPtr(ext)
	p.CreatedAt, p.UpdatedAt = createdAt.UTC(), updated.UTC()
	return p, nil
}

func (r *Repo) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	res, err := r.db.ExecContext(ctx, insertPropertySQL, propertyArgs(p)...)
	if err != nil {
		if isDuplicate(err) {
			return domain.Property{}, domain.ValidationError{Field: "smoobuId", Msg: "already linked to another property", Err: err}
		}
		return domain.Property{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Property{}, err
	}
	return r.GetProperty(ctx, id)
}

func (r *Repo) UpdateProperty(ctx context.Context, p domain.Property) error {
	args := append(propertyArgs(p), p.ID)
	res, err := r.db.ExecContext(ctx, updatePropertySQL, args...)
	if err != nil {
		if isDuplicate(err) {
			return domain.ValidationError{Field: "smoobuId", Msg: "already linked to another property", Err: err}
		}
		return err
	}
	// MySQL counts changed rows, so an identical write reports zero.
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = r.GetProperty(ctx, p.ID)
	return err
}

func (r *Repo) DeleteProperty(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deletePropertySQL, id)
	if err != nil {
		return err
	}
	return requireRow(res, "property", id)
}

func (r *Repo) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.NotFoundError{Resource: "property", ID: strconv.FormatInt(id, 10)}
	}
	return p, err
}

func (r *Repo) FindPropertyByExternalID(ctx context.Context, externalID string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertyByExternalSQL, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.NotFoundError{Resource: "property with Smoobu ID", ID: externalID}
	}
	return p, err
}

func (r *Repo) ListLinkedProperties(ctx context.Context, onlyID *int64) ([]domain.Property, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if onlyID != nil {
		rows, err = r.db.QueryContext(ctx, getLinkedPropertySQL, *onlyID)
	} else {
		rows, err = r.db.QueryContext(ctx, listLinkedPropertiesSQL)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------- bookings ----------

func bookingArgs(b domain.Booking) []any {
	var name, email, phone any
	if b.Guest != nil {
		name, email, phone = b.Guest.Name, valStr(b.Guest.Email), valStr(b.Guest.Phone)
	}
	kind := b.Kind
	if kind == "" {
		kind = domain.KindReservation
	}
	return []any{
		b.PropertyID, string(kind), name, email, phone, b.NumGuests,
		domain.FormatDate(b.CheckIn), domain.FormatDate(b.CheckOut),
		valF64(b.TotalAmount), string(b.Source), string(b.Status),
		valStr(b.Notes), valStr(b.ExternalID), valTime(b.SyncedAt),
	}
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                   domain.Booking
		kind, source, state string
		name, email, phone  sql.NullString
		notes, ext          sql.NullString
		amount              sql.NullFloat64
		synced              sql.NullTime
		createdAt, updated  time.Time
	)
	if err := s.Scan(
		&b.ID, &b.PropertyID, &kind, &name, &email, &phone, &b.NumGuests,
		&b.CheckIn, &b.CheckOut, &amount, &source, &state, &notes, &ext, &synced, &b.Version,
		&createdAt, &updated,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Kind = domain.EntryKind(kind)
	if b.Kind != domain.KindBlock {
		b.Guest = &domain.Guest{Name: name.String, Email: strPtr(email), Phone: strPtr(phone)}
	}
	b.CheckIn, b.CheckOut = domain.Day(b.CheckIn), domain.Day(b.CheckOut)
	b.TotalAmount = f64Ptr(amount)
	b.Source = domain.BookingSource(source)
	b.Status = domain.BookingStatus(state)
	b.Notes = strPtr(notes)
	b.ExternalID = strPtr(ext)
	b.SyncedAt = timePtr(synced)
	b.CreatedAt, b.UpdatedAt = createdAt.UTC(), updated.UTC()
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: strconv.FormatInt(id, 10)}
	}
	return b, err
}

func (r *Repo) FindBookingByExternalID(ctx context.Context, externalID string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingByExternalSQL, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking with Smoobu ID", ID: externalID}
	}
	return b, err
}

// CreateBooking inserts b and its cleaning job in one transaction. A
// duplicate external id means a concurrent sync inserted it first.
func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking, job *domain.CleaningJob) (domain.Booking, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertBookingSQL, bookingArgs(b)...)
		if err != nil {
			if isDuplicate(err) {
				return domain.ConflictError{Resource: "booking", ID: deref(b.ExternalID)}
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		status := job.Status
		if status == "" {
			status = domain.CleaningPending
		}
		if _, err := tx.ExecContext(ctx, insertCleaningJobSQL,
			b.PropertyID, id, domain.FormatDate(job.ScheduledDate), string(status),
		); err != nil {
			return fmt.Errorf("insert cleaning job: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return r.GetBooking(ctx, id)
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	args := append(bookingArgs(b), b.ID, b.Version)
	res, err := r.db.ExecContext(ctx, updateBookingSQL, args...)
	if err != nil {
		if isDuplicate(err) {
			return domain.Booking{}, domain.ConflictError{Resource: "booking", ID: deref(b.ExternalID)}
		}
		return domain.Booking{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if n == 0 {
		return domain.Booking{}, domain.ConflictError{Resource: "booking", ID: strconv.FormatInt(b.ID, 10)}
	}
	return r.GetBooking(ctx, b.ID)
}

func (r *Repo) DeleteBooking(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteBookingSQL, id)
	if err != nil {
		return err
	}
	return requireRow(res, "booking", id)
}

func (r *Repo) ListActiveBookings(ctx context.Context, propertyID int64, dr domain.DateRange) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listActiveBookingsSQL,
		propertyID, domain.FormatDate(dr.End), domain.FormatDate(dr.Start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) ListCleaningJobs(ctx context.Context, bookingID int64) ([]domain.CleaningJob, error) {
	rows, err := r.db.QueryContext(ctx, listCleaningJobsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CleaningJob
	for rows.Next() {
		var (
			j      domain.CleaningJob
			bid    sql.NullInt64
			status string
		)
		if err := rows.Scan(&j.ID, &j.PropertyID, &bid, &j.ScheduledDate, &status, &j.CreatedAt); err != nil {
			return nil, err
		}
		if bid.Valid {
			v := bid.Int64
			j.BookingID = &v
		}
		j.ScheduledDate = domain.Day(j.ScheduledDate)
		j.Status = domain.CleaningStatus(status)
		out = append(out, j)
	}
	return out, rows.Err()
}

// ---------- rates ----------

func (r *Repo) ListRates(ctx context.Context, propertyID int64, dr domain.DateRange) ([]domain.PropertyRate, error) {
	rows, err := r.db.QueryContext(ctx, listRatesSQL,
		propertyID, domain.FormatDate(dr.Start), domain.FormatDate(dr.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PropertyRate
	for rows.Next() {
		var pr domain.PropertyRate
		if err := rows.Scan(&pr.PropertyID, &pr.Date, &pr.Rate, &pr.Version); err != nil {
			return nil, err
		}
		pr.Date = domain.Day(pr.Date)
		out = append(out, pr)
	}
	return out, rows.Err()
}

// UpsertRates writes one row per day; a failure on any day rolls back the range.
func (r *Repo) UpsertRates(ctx context.Context, propertyID int64, dr domain.DateRange, rate float64) (int, error) {
	days := dr.Days()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertRateSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, d := range days {
			if _, err := stmt.ExecContext(ctx, propertyID, domain.FormatDate(d), rate); err != nil {
				return fmt.Errorf("upsert rate %s: %w", domain.FormatDate(d), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(days), nil
}

func (r *Repo) DeleteRates(ctx context.Context, propertyID int64, dr domain.DateRange) (int, error) {
	res, err := r.db.ExecContext(ctx, deleteRatesSQL,
		propertyID, domain.FormatDate(dr.Start), domain.FormatDate(dr.End))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ---------- messages ----------

func messageArgs(m domain.Message) []any {
	return []any{
		m.BookingID, valStr(m.ExternalID), string(m.Sender), valStr(m.Subject),
		m.Content, m.SentAt.UTC(), valTime(m.SyncedAt),
	}
}

func (r *Repo) InsertMessageIfAbsent(ctx context.Context, m domain.Message) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertMessageIgnoreSQL, messageArgs(m)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repo) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	res, err := r.db.ExecContext(ctx, insertMessageSQL, messageArgs(m)...)
	if err != nil {
		return domain.Message{}, err
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (r *Repo) ListMessages(ctx context.Context, bookingID int64) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, listMessagesSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m            domain.Message
			ext, subject sql.NullString
			sender       string
			synced       sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.BookingID, &ext, &sender, &subject, &m.Content, &m.SentAt, &synced); err != nil {
			return nil, err
		}
		m.ExternalID = strPtr(ext)
		m.Sender = domain.MessageSender(sender)
		m.Subject = strPtr(subject)
		m.SentAt = m.SentAt.UTC()
		m.SyncedAt = timePtr(synced)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---------- helpers ----------

func requireRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
