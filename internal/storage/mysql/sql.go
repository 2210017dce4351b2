package mysql

const upsertProjectSQL = `
INSERT INTO projects
  (developer, slug, status, min_price_aed, max_price_aed, lat, lon, geohash, doc)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status        = VALUES(status),
  min_price_aed = VALUES(min_price_aed),
  max_price_aed = VALUES(max_price_aed),
  lat           = VALUES(lat),
  lon           = VALUES(lon),
  geohash       = VALUES(geohash),
  doc           = VALUES(doc),
  updated_at    = CURRENT_TIMESTAMP
`

const upsertI18nSQL = `
INSERT INTO project_i18n
  (developer, slug, lang, name, city, area)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name = VALUES(name),
  city = VALUES(city),
  area = VALUES(area)
`

const insertRunSQL = `
INSERT INTO ingest_runs (id, input, written, skipped, dry_run)
VALUES (?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// One project with its names in the requested lang; the English row is the
// fallback when the requested one is missing or empty.
const getProjectSQL = `
SELECT
  p.developer,
  p.slug,
  p.status,
  p.min_price_aed,
  p.geohash,
  COALESCE(NULLIF(i.name, ''), en.name) AS name,
  COALESCE(NULLIF(i.city, ''), en.city) AS city,
  p.doc
FROM projects p
LEFT JOIN project_i18n i
  ON i.developer = p.developer AND i.slug = p.slug AND i.lang = ?
LEFT JOIN project_i18n en
  ON en.developer = p.developer AND en.slug = p.slug AND en.lang = 'en'
WHERE p.developer = ? AND p.slug = ?
`

const countByDeveloperSQL = `
SELECT developer, COUNT(*) FROM projects GROUP BY developer ORDER BY developer
`

const getRunSQL = `
SELECT id, input, written, skipped, dry_run FROM ingest_runs WHERE id = ?
`
