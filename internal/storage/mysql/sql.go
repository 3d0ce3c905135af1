package mysql

// -----------------------------------------------------------------------------
// PROPERTIES
// -----------------------------------------------------------------------------

const propertyColumns = `id, name, address, city, postal_code, country, lat, lon, bedrooms,
  daily_rate, monthly_rent, status, external_id, created_at, updated_at`

const insertPropertySQL = `
INSERT INTO properties
  (name, address, city, postal_code, country, lat, lon, bedrooms, daily_rate, monthly_rent, status, external_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePropertySQL = `
UPDATE properties SET
  name         = ?,
  address      = ?,
  city         = ?,
  postal_code  = ?,
  country      = ?,
  lat          = ?,
  lon          = ?,
  bedrooms     = ?,
  daily_rate   = ?,
  monthly_rent = ?,
  status       = ?,
  external_id  = ?,
  updated_at   = CURRENT_TIMESTAMP
WHERE id = ?
`

const deletePropertySQL = `DELETE FROM properties WHERE id = ?`

const getPropertySQL = `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`

const getPropertyByExternalSQL = `SELECT ` + propertyColumns + ` FROM properties WHERE external_id = ?`

// A linked property has a non-empty external_id.
const listLinkedPropertiesSQL = `SELECT ` + propertyColumns + `
FROM properties
WHERE external_id IS NOT NULL AND external_id <> ''
ORDER BY id
`

const getLinkedPropertySQL = `SELECT ` + propertyColumns + `
FROM properties
WHERE id = ? AND external_id IS NOT NULL AND external_id <> ''
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingColumns = `id, property_id, kind, guest_name, guest_email, guest_phone, num_guests,
  check_in, check_out, total_amount, source, status, notes, external_id, synced_at, version,
  created_at, updated_at`

const insertBookingSQL = `
INSERT INTO bookings
  (property_id, kind, guest_name, guest_email, guest_phone, num_guests, check_in, check_out,
   total_amount, source, status, notes, external_id, synced_at, version)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
`

// Version-checked: zero affected rows means another writer got there first.
const updateBookingSQL = `
UPDATE bookings SET
  property_id  = ?,
  kind         = ?,
  guest_name   = ?,
  guest_email  = ?,
  guest_phone  = ?,
  num_guests   = ?,
  check_in     = ?,
  check_out    = ?,
  total_amount = ?,
  source       = ?,
  status       = ?,
  notes        = ?,
  external_id  = ?,
  synced_at    = ?,
  version      = version + 1,
  updated_at   = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

const getBookingSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

const getBookingByExternalSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE external_id = ?`

// Half-open stays: an entry overlaps [start, end] when it starts on or
// before end and leaves after start.
const listActiveBookingsSQL = `SELECT ` + bookingColumns + `
FROM bookings
WHERE property_id = ?
  AND status <> 'CANCELLED'
  AND check_in <= ?
  AND check_out > ?
ORDER BY check_in, id
`

const insertCleaningJobSQL = `
INSERT INTO cleaning_jobs (property_id, booking_id, scheduled_date, status)
VALUES (?, ?, ?, ?)
`

const listCleaningJobsSQL = `
SELECT id, property_id, booking_id, scheduled_date, status, created_at
FROM cleaning_jobs
WHERE booking_id = ?
ORDER BY scheduled_date, id
`

// -----------------------------------------------------------------------------
// RATES
// -----------------------------------------------------------------------------

const upsertRateSQL = `
INSERT INTO property_rates (property_id, date, rate, version)
VALUES (?, ?, ?, 1)
ON DUPLICATE KEY UPDATE
  rate       = VALUES(rate),
  version    = property_rates.version + 1,
  updated_at = CURRENT_TIMESTAMP
`

const deleteRatesSQL = `DELETE FROM property_rates WHERE property_id = ? AND date BETWEEN ? AND ?`

const listRatesSQL = `
SELECT property_id, date, rate, version
FROM property_rates
WHERE property_id = ? AND date BETWEEN ? AND ?
ORDER BY date
`

// -----------------------------------------------------------------------------
// MESSAGES
// -----------------------------------------------------------------------------

// INSERT IGNORE leans on uq_messages_external; RowsAffected tells new from known.
const insertMessageIgnoreSQL = `
INSERT IGNORE INTO messages (booking_id, external_id, sender, subject, content, sent_at, synced_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const insertMessageSQL = `
INSERT INTO messages (booking_id, external_id, sender, subject, content, sent_at, synced_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const listMessagesSQL = `
SELECT id, booking_id, external_id, sender, subject, content, sent_at, synced_at
FROM messages
WHERE booking_id = ?
ORDER BY sent_at, id
`
