package timescaledb

const seriesExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM observations WHERE site_id = ? AND parameter_code = ?
)`

const coverageSQL = `
SELECT site_id, parameter_code, count(*) AS count, min(time) AS first, max(time) AS last
FROM observations
WHERE site_id = ?
GROUP BY site_id, parameter_code
ORDER BY parameter_code`

const createStagingTableSQL = `
CREATE TEMPORARY TABLE observations_staging (LIKE observations INCLUDING DEFAULTS) ON COMMIT DROP`

const mergeStagingSQL = `
INSERT INTO observations (time, site_id, parameter_code, value, qualifiers)
SELECT time, site_id, parameter_code, value, qualifiers FROM observations_staging
ON CONFLICT (site_id, parameter_code, time)
DO UPDATE SET value = EXCLUDED.value, qualifiers = EXCLUDED.qualifiers`

const exportSQL = `
SELECT time, site_id, parameter_code, value, qualifiers
FROM observations
WHERE ($1 = '' OR site_id = $1)
  AND ($2 = '' OR parameter_code = $2)
  AND time >= $3 AND time <= $4
ORDER BY site_id, parameter_code, time`
