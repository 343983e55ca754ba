package mysql

const insertHotelSQL = `
INSERT INTO hotels (name, city, latitude, longitude)
VALUES (?, ?, ?, ?)
`

const insertRoomSQL = `
INSERT INTO rooms (hotel_id, type, capacity)
VALUES (?, ?, ?)
`

const insertWindowSQL = `
INSERT INTO availability (room_id, start_date, end_date, available_count, price)
VALUES (?, ?, ?, ?, ?)
`

// Locks the room's existing windows so two concurrent inserts cannot both
// pass the overlap check. Two ranges [s1,e1) and [s2,e2) intersect iff
// NOT (e1 <= s2 OR s1 >= e2).
const overlapCheckSQL = `
SELECT 1
FROM availability
WHERE room_id = ?
  AND NOT (end_date <= ? OR start_date >= ?)
LIMIT 1
FOR UPDATE
`

// Containment match: the window must fully cover the queried stay.
const findWindowSQL = `
SELECT id, room_id, start_date, end_date, available_count, price
FROM availability
WHERE room_id = ?
  AND start_date <= ?
  AND end_date   >= ?
ORDER BY id
LIMIT 1
`

const findWindowForUpdateSQL = `
SELECT id, available_count, price
FROM availability
WHERE room_id = ?
  AND start_date <= ?
  AND end_date   >= ?
  AND available_count > 0
LIMIT 1
FOR UPDATE
`

// Conditional decrement; callers must check RowsAffected == 1. The
// available_count > 0 guard keeps the count non-negative even without the
// row lock.
const decrementWindowSQL = `
UPDATE availability
SET available_count = available_count - 1
WHERE id = ? AND available_count > 0
`

const insertReservationSQL = `
INSERT INTO reservations (room_id, user_id, start_date, end_date)
VALUES (?, ?, ?, ?)
`

// Room joined with its hotel; used to reject bookings against unknown rooms
// and to carry hotel/room context into the notification event.
const getRoomContextSQL = `
SELECT r.id, r.hotel_id, r.type, r.capacity, h.name
FROM rooms r
JOIN hotels h ON h.id = r.hotel_id
WHERE r.id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// The base-price ordering equals final-price ordering because the discount is
// a flat multiplier; a.id breaks ties deterministically.
const searchSQL = `
SELECT
  h.id,
  h.name,
  h.city,
  h.latitude,
  h.longitude,
  r.id,
  r.type,
  r.capacity,
  a.id,
  a.price,
  a.available_count
FROM hotels h
JOIN rooms r        ON r.hotel_id = h.id
JOIN availability a ON a.room_id  = r.id
WHERE h.city = ?
  AND a.start_date <= ?
  AND a.end_date   >= ?
  AND r.capacity   >= ?
  AND a.available_count > 0
ORDER BY a.price ASC, a.id ASC
LIMIT ? OFFSET ?
`
