package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (uuid,
                      created_at,
                      station,
                      location,
                      capture_date,
                      capture_time,
                      time_zone,
                      utc_offset,
                      carrier,
                      sample_rate,
                      symbol_rate,
                      bit_rate,
                      modulation,
                      amplitude_method,
                      phase_method,
                      gps_source,
                      notes,
                      config)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSessionColumns = `
SELECT 
    id,
    uuid,
    created_at,
    station,
    location,
    capture_date,
    capture_time,
    time_zone,
    utc_offset,
    carrier,
    sample_rate,
    symbol_rate,
    bit_rate,
    modulation,
    amplitude_method,
    phase_method,
    gps_source,
    notes,
    config
FROM sessions`

	selectSessionSQL = selectSessionColumns + `
WHERE 
    id = ?`

	selectSessionsSQL = selectSessionColumns + `
ORDER BY created_at, id`

	insertSeriesSQL = `
INSERT INTO series (session_id, name, unit)
VALUES (?, ?, ?)`

	selectSeriesSQL = `
SELECT 
    id,
    session_id,
    name,
    unit,
    length
FROM series
WHERE 
    session_id = ?
    AND name = ?`

	selectSeriesListSQL = `
SELECT 
    id,
    session_id,
    name,
    unit,
    length
FROM series
WHERE 
    session_id = ?
ORDER BY id`

	updateSeriesLengthSQL = `
UPDATE series
SET length = length + ?
WHERE id = ?`

	insertChunkSQL = `
INSERT INTO series_chunks (series_id,
                           start_index,
                           count,
                           data)
VALUES `

	selectChunksSQL = `
SELECT 
    start_index,
    count,
    data
FROM series_chunks
WHERE 
    series_id = ?
    AND start_index + count > ?
    AND start_index < ?
ORDER BY start_index`
)
