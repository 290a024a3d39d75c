package timescaledb

const createTableSQL = `
CREATE TABLE IF NOT EXISTS spectro_results (
	time timestamptz,
	runid text,
	shotindex integer,
	shotnumber text,
	roiname text,
	failed boolean,
	failreason text,
	ncomponents integer,
	converged boolean,
	chisquare double precision,
	temperatureev double precision,
	velocityms double precision,
	baseline double precision,
	baselinestderr double precision,
	amplitude1 double precision,
	center1 double precision,
	sigma1 double precision,
	amplitudestderr1 double precision,
	centerstderr1 double precision,
	sigmastderr1 double precision,
	amplitude2 double precision,
	center2 double precision,
	sigma2 double precision,
	amplitudestderr2 double precision,
	centerstderr2 double precision,
	sigmastderr2 double precision,
	amplitude3 double precision,
	center3 double precision,
	sigma3 double precision,
	amplitudestderr3 double precision,
	centerstderr3 double precision,
	sigmastderr3 double precision
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `
SELECT create_hypertable('spectro_results', 'time', if_not_exists => TRUE, migrate_data => TRUE);`
